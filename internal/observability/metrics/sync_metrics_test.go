package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	bookingsyncdomain "github.com/smallbiznis/bookingsync/internal/bookingsync/domain"
	"gorm.io/gorm"
)

func TestClassifySyncJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SyncJobReasonDeadlineExceeded},
		{name: "lock", err: fmt.Errorf("wrap: %w", bookingsyncdomain.ErrLockUnavailable), want: SyncJobReasonLockUnavailable},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SyncJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SyncJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SyncJobReasonUniqueViolation},
		{name: "external", err: bookingsyncdomain.ExternalSource("", "list", errors.New("503")), want: SyncJobReasonExternalSource},
		{name: "unknown", err: errors.New("boom"), want: SyncJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySyncJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSyncMetrics(registry, Config{ServiceName: "bookingsync", Environment: "test"})

	m.ObserveOutcome(bookingsyncdomain.Outcome{
		SubscriptionID:  "sub_1",
		Status:          bookingsyncdomain.StatusSynced,
		BookingsCreated: 3,
		BookingsRemoved: 2,
	})
	m.ObserveOutcome(bookingsyncdomain.Outcome{
		SubscriptionID: "sub_2",
		Status:         bookingsyncdomain.StatusFailed,
		Category:       bookingsyncdomain.CategoryAccountUnresolved,
	})

	if got := testutil.ToFloat64(m.bookings.WithLabelValues(BookingOpCreated)); got != 3 {
		t.Fatalf("expected 3 created, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookings.WithLabelValues(BookingOpRemoved)); got != 2 {
		t.Fatalf("expected 2 removed, got %v", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("failed", "account_unresolved")); got != 1 {
		t.Fatalf("expected 1 failed outcome, got %v", got)
	}
}

func TestNilSyncMetricsIsSafe(t *testing.T) {
	var m *SyncMetrics
	m.IncJobRun("x")
	m.ObserveOutcome(bookingsyncdomain.Outcome{BookingsCreated: 1})
	m.IncJobError("x", errors.New("boom"))
}
