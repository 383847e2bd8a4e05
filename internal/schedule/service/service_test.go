package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/bookingsync/internal/clock"
	"github.com/smallbiznis/bookingsync/internal/schedule/domain"
	"github.com/smallbiznis/bookingsync/internal/schedule/repository"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"github.com/smallbiznis/bookingsync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSource struct {
	updates map[string]map[string]string
	err     error
}

func (f *fakeSource) ListActive(context.Context) ([]subscriptiondomain.Subscription, error) {
	return nil, nil
}

func (f *fakeSource) Get(context.Context, string) (subscriptiondomain.Subscription, error) {
	return subscriptiondomain.Subscription{}, subscriptiondomain.ErrNotFound
}

func (f *fakeSource) UpdateMetadata(_ context.Context, id string, values map[string]string) error {
	if f.err != nil {
		return f.err
	}
	if f.updates == nil {
		f.updates = map[string]map[string]string{}
	}
	f.updates[id] = values
	return nil
}

func newTestService(t *testing.T, source subscriptiondomain.Source) (*Service, domain.Repository) {
	t.Helper()
	db := testutil.OpenSQLite(t)
	repo := repository.Provide()
	svc := New(Params{
		DB:     db,
		Log:    zaptest.NewLogger(t),
		Repo:   repo,
		Clock:  clock.NewFakeClock(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)),
		Source: source,
	}).(*Service)
	return svc, repo
}

func manualEntry(id string) domain.ManualEntry {
	return domain.ManualEntry{
		SubscriptionID: id,
		Days:           []string{"tue", "THU"},
		StartTime:      "08:00",
		EndTime:        "09:15",
		Location:       "Back gate",
		Dogs:           2,
		Notes:          "friendly",
	}
}

func TestIsCompleteUsesCacheGuard(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	s := sub("sub_guard", map[string]string{"schedule_days": "TUE,THU"})

	ok, err := svc.IsComplete(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.SaveManualEntry(ctx, manualEntry("sub_guard"))
	require.NoError(t, err)

	ok, err = svc.IsComplete(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)

	incomplete, err := svc.FindIncomplete(ctx, []subscriptiondomain.Subscription{s})
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}

func TestFindIncomplete(t *testing.T) {
	svc, _ := newTestService(t, nil)
	subs := []subscriptiondomain.Subscription{
		sub("", map[string]string{}),
		sub("sub_ok", map[string]string{
			"schedule_days":       "MON",
			"schedule_start_time": "07:00",
			"schedule_end_time":   "08:00",
			"schedule_location":   "Home",
			"schedule_dogs":       "1",
			"service_code":        "WALK_SHORT_SINGLE",
		}),
		sub("sub_missing", map[string]string{"schedule_days": "TUE,THU"}),
	}

	out, err := svc.FindIncomplete(context.Background(), subs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "sub_missing", out[0].SubscriptionID)
	assert.Equal(t, "cus_123", out[0].CustomerID)
	assert.ElementsMatch(t, []string{"start_time", "end_time", "location", "dogs", "service_code"}, out[0].MissingFields)
}

func TestEffectiveMergesCompleteCacheRow(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.SaveManualEntry(ctx, manualEntry("sub_merge"))
	require.NoError(t, err)

	s := sub("sub_merge", map[string]string{"schedule_location": "Front door"})
	eff, err := svc.Effective(ctx, s)
	require.NoError(t, err)

	assert.True(t, eff.IsComplete())
	assert.Equal(t, []domain.Weekday{domain.Tuesday, domain.Thursday}, eff.Days)
	assert.Equal(t, "08:00", eff.Start.String())
	assert.Equal(t, "09:15", eff.End.String())
	assert.Equal(t, "Front door", eff.Location)
	assert.Equal(t, 2, eff.Units)
}

func TestEffectiveWithoutCacheStaysIncomplete(t *testing.T) {
	svc, _ := newTestService(t, nil)
	eff, err := svc.Effective(context.Background(), sub("sub_none", map[string]string{"schedule_days": "MON"}))
	require.NoError(t, err)
	assert.False(t, eff.IsComplete())
}

func TestSaveManualEntryValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*domain.ManualEntry)
		want   error
	}{
		{"missing id", func(e *domain.ManualEntry) { e.SubscriptionID = " " }, domain.ErrInvalidSubscriptionID},
		{"no days", func(e *domain.ManualEntry) { e.Days = nil }, domain.ErrInvalidDays},
		{"bad day", func(e *domain.ManualEntry) { e.Days = []string{"funday"} }, domain.ErrInvalidDays},
		{"bad time", func(e *domain.ManualEntry) { e.StartTime = "25:00" }, domain.ErrInvalidTimeWindow},
		{"end before start", func(e *domain.ManualEntry) { e.EndTime = "07:00" }, domain.ErrInvalidTimeWindow},
		{"no location", func(e *domain.ManualEntry) { e.Location = "  " }, domain.ErrInvalidLocation},
		{"no dogs", func(e *domain.ManualEntry) { e.Dogs = 0 }, domain.ErrInvalidUnits},
		{"unknown code", func(e *domain.ManualEntry) { e.ServiceCode = "NOPE" }, domain.ErrInvalidServiceCode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := manualEntry("sub_validate")
			tc.mutate(&entry)
			_, err := svc.SaveManualEntry(ctx, entry)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSaveManualEntryPushesMetadata(t *testing.T) {
	source := &fakeSource{}
	svc, repo := newTestService(t, source)
	ctx := context.Background()

	entry := manualEntry("sub_push")
	entry.ServiceCode = "WALK_LONG_SINGLE"
	entry.PushToSource = true
	row, err := svc.SaveManualEntry(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheSourceManual, row.Source)

	assert.Equal(t, map[string]string{
		"days":         "TUE,THU",
		"start_time":   "08:00",
		"end_time":     "09:15",
		"location":     "Back gate",
		"dogs":         "2",
		"notes":        "friendly",
		"service_code": "WALK_LONG_SINGLE",
	}, source.updates["sub_push"])

	stored, err := repo.Get(ctx, svc.db, "sub_push")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.FullyPopulated())
}

func TestSaveManualEntryPushFailureKeepsCache(t *testing.T) {
	source := &fakeSource{err: errors.New("stripe down")}
	svc, repo := newTestService(t, source)
	ctx := context.Background()

	entry := manualEntry("sub_push_fail")
	entry.PushToSource = true
	_, err := svc.SaveManualEntry(ctx, entry)
	assert.ErrorIs(t, err, domain.ErrMetadataPush)

	stored, err := repo.Get(ctx, svc.db, "sub_push_fail")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRefreshCacheKeepsManualRows(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.SaveManualEntry(ctx, manualEntry("sub_manual"))
	require.NoError(t, err)

	incomplete := Extract(sub("sub_manual", map[string]string{"schedule_days": "FRI"}))
	complete := Extract(sub("sub_sync", map[string]string{
		"schedule_days":       "SAT",
		"schedule_start_time": "10:30",
		"schedule_end_time":   "11:00",
		"schedule_location":   "Beach",
		"schedule_dogs":       "1",
		"service_code":        "WALK_SHORT_SINGLE",
	}))
	require.NoError(t, svc.RefreshCache(ctx, []domain.Schedule{incomplete, complete}, map[string]map[string]string{
		"sub_sync": {"schedule_days": "SAT"},
	}))

	manual, err := repo.Get(ctx, svc.db, "sub_manual")
	require.NoError(t, err)
	assert.Equal(t, "TUE,THU", manual.Days)
	assert.Equal(t, domain.CacheSourceManual, manual.Source)

	synced, err := repo.Get(ctx, svc.db, "sub_sync")
	require.NoError(t, err)
	require.NotNil(t, synced)
	assert.Equal(t, "SAT", synced.Days)
	assert.Equal(t, domain.CacheSourceSync, synced.Source)
	assert.Equal(t, "SAT", synced.Metadata["schedule_days"])
	assert.True(t, synced.FullyPopulated())
}

func TestSyncRowWithPlaceholdersIsNotComplete(t *testing.T) {
	start, end := "09:00", "10:00"
	row := domain.CacheEntry{
		SubscriptionID: "sub_x",
		Days:           "MON",
		StartTime:      &start,
		EndTime:        &end,
		Units:          1,
		Location:       "Home",
		Source:         domain.CacheSourceSync,
	}
	assert.False(t, row.FullyPopulated())
	row.Source = domain.CacheSourceManual
	assert.True(t, row.FullyPopulated())
}
