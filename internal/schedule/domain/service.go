package domain

import (
	"context"
	"errors"

	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
)

// Incomplete pairs a subscription with the fields a human still has to fill in.
type Incomplete struct {
	Subscription   subscriptiondomain.Subscription `json:"-"`
	SubscriptionID string                          `json:"subscription_id"`
	CustomerID     string                          `json:"customer_id"`
	Schedule       Schedule                        `json:"-"`
	MissingFields  []string                        `json:"missing_fields"`
}

// ManualEntry carries schedule values supplied by a person.
type ManualEntry struct {
	SubscriptionID string   `json:"-" validate:"required"`
	Days           []string `json:"days" validate:"required,min=1,dive,weekday"`
	StartTime      string   `json:"start_time" validate:"required,timeofday"`
	EndTime        string   `json:"end_time" validate:"required,timeofday"`
	Location       string   `json:"location" validate:"required"`
	Dogs           int      `json:"dogs" validate:"required,gte=1"`
	Notes          string   `json:"notes"`
	ServiceCode    string   `json:"service_code"`
	PushToSource   bool     `json:"push_to_source"`
}

type Service interface {
	// Extract derives the schedule from subscription metadata alone.
	Extract(sub subscriptiondomain.Subscription) Schedule
	// IsComplete applies the completeness rules and the cache guard.
	IsComplete(ctx context.Context, sub subscriptiondomain.Subscription) (bool, error)
	// FindIncomplete lists subscriptions that still need human input.
	FindIncomplete(ctx context.Context, subs []subscriptiondomain.Subscription) ([]Incomplete, error)
	// Effective is the extracted schedule with gaps filled from a complete cache row.
	Effective(ctx context.Context, sub subscriptiondomain.Subscription) (Schedule, error)
	// SaveManualEntry stores human-supplied values and optionally pushes them upstream.
	SaveManualEntry(ctx context.Context, entry ManualEntry) (CacheEntry, error)
	// RefreshCache records the schedules seen during a batch.
	RefreshCache(ctx context.Context, schedules []Schedule, metadata map[string]map[string]string) error
}

var (
	ErrInvalidSubscriptionID = errors.New("invalid_subscription_id")
	ErrInvalidDays           = errors.New("invalid_days")
	ErrInvalidTimeWindow     = errors.New("invalid_time_window")
	ErrInvalidLocation       = errors.New("invalid_location")
	ErrInvalidUnits          = errors.New("invalid_units")
	ErrInvalidServiceCode    = errors.New("invalid_service_code")
	ErrMetadataPush          = errors.New("metadata_push_failed")
)
