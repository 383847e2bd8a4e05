package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingsync/internal/booking/domain"
	"github.com/smallbiznis/bookingsync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booking(id int64, subID string, source string, start time.Time) *domain.Booking {
	b := &domain.Booking{
		ID:           snowflake.ID(id),
		AccountID:    7,
		ServiceCode:  "WALK_SHORT_SINGLE",
		ServiceLabel: "Short Walk (Single)",
		StartAt:      start,
		EndAt:        start.Add(30 * time.Minute),
		Location:     "Home",
		Units:        1,
		Status:       domain.StatusScheduled,
		Source:       source,
		CreatedAt:    start,
		UpdatedAt:    start,
	}
	if subID != "" {
		b.SubscriptionID = &subID
	}
	return b
}

func TestInsertDuplicateSubscriptionSlot(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := Provide()
	ctx := context.Background()
	start := time.Date(2026, 10, 20, 9, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, db, booking(1, "sub_1", domain.SourceSubscription, start)))
	err := repo.Insert(ctx, db, booking(2, "sub_1", domain.SourceSubscription, start))
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	exists, err := repo.ExistsForAccountAt(ctx, db, 7, start)
	require.NoError(t, err)
	assert.False(t, exists, "subscription bookings do not block the slot")
}

func TestExistsForAccountAtCountsManualAndInvoiceOnly(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := Provide()
	ctx := context.Background()
	manualAt := time.Date(2026, 10, 20, 9, 30, 0, 0, time.UTC)
	invoiceAt := manualAt.Add(24 * time.Hour)
	subAt := manualAt.Add(48 * time.Hour)

	require.NoError(t, repo.Insert(ctx, db, booking(1, "", domain.SourceManual, manualAt)))
	require.NoError(t, repo.Insert(ctx, db, booking(2, "", domain.SourceInvoice, invoiceAt)))
	require.NoError(t, repo.Insert(ctx, db, booking(3, "sub_other", domain.SourceSubscription, subAt)))

	for _, tc := range []struct {
		at   time.Time
		want bool
	}{
		{manualAt, true},
		{invoiceAt, true},
		{subAt, false},
		{subAt.Add(time.Hour), false},
	} {
		exists, err := repo.ExistsForAccountAt(ctx, db, 7, tc.at)
		require.NoError(t, err)
		assert.Equal(t, tc.want, exists, tc.at.String())
	}
}

func TestDeleteFutureScopes(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := Provide()
	ctx := context.Background()
	today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	rows := []*domain.Booking{
		booking(1, "sub_keep", domain.SourceSubscription, today.Add(24*time.Hour)),
		booking(2, "sub_gone", domain.SourceSubscription, today.Add(48*time.Hour)),
		booking(3, "sub_gone", domain.SourceSubscription, today.Add(-24*time.Hour)),
		booking(4, "", domain.SourceManual, today.Add(72*time.Hour)),
	}
	for _, b := range rows {
		require.NoError(t, repo.Insert(ctx, db, b))
	}

	removed, err := repo.DeleteFutureNotIn(ctx, db, nil, today)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = repo.DeleteFutureNotIn(ctx, db, []string{"sub_keep"}, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = repo.DeleteFutureBySubscription(ctx, db, "sub_keep", today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := repo.List(ctx, db, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, snowflake.ID(3), left[0].ID)
	assert.Equal(t, snowflake.ID(4), left[1].ID)
}
