// Package domain describes subscription-to-booking synchronization results.
package domain

import (
	"context"

	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
)

// Status of one subscription after a sync attempt.
type Status string

const (
	StatusSynced     Status = "synced"
	StatusNoSchedule Status = "no_schedule"
	StatusIncomplete Status = "incomplete"
	StatusPurged     Status = "purged"
	StatusFailed     Status = "failed"
)

// Outcome reports what happened to one subscription.
type Outcome struct {
	SubscriptionID  string   `json:"subscription_id"`
	Status          Status   `json:"status"`
	Category        Category `json:"category,omitempty"`
	Message         string   `json:"message,omitempty"`
	ServiceCode     string   `json:"service_code,omitempty"`
	MissingFields   []string `json:"missing_fields,omitempty"`
	BookingsCreated int      `json:"bookings_created"`
	BookingsRemoved int      `json:"bookings_removed"`
	BookingsSkipped int      `json:"bookings_skipped"`
}

// Failed reports whether the outcome counts as an error.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

// Result aggregates a batch run.
type Result struct {
	SubscriptionsProcessed int       `json:"subscriptions_processed"`
	BookingsCreated        int       `json:"bookings_created"`
	BookingsCleaned        int       `json:"bookings_cleaned"`
	ErrorsCount            int       `json:"errors_count"`
	IncompleteCount        int       `json:"incomplete_count"`
	Outcomes               []Outcome `json:"outcomes"`
}

type Service interface {
	// SyncSubscription fetches one subscription and rebuilds its future bookings.
	SyncSubscription(ctx context.Context, subscriptionID string, horizonDays int) (Outcome, error)
	// SyncLoaded rebuilds bookings for an already fetched subscription. Failures
	// are reported in the outcome.
	SyncLoaded(ctx context.Context, sub subscriptiondomain.Subscription, horizonDays int) Outcome
	// SyncAll reconciles every active subscription and removes bookings of
	// subscriptions that are no longer active.
	SyncAll(ctx context.Context, horizonDays int) (Result, error)
}
