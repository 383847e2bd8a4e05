package domain

import (
	"context"
	"errors"
)

// Source is the external system of record for subscriptions.
type Source interface {
	// ListActive returns every subscription the billing system reports as active.
	ListActive(ctx context.Context) ([]Subscription, error)
	// Get fetches a single subscription by id.
	Get(ctx context.Context, id string) (Subscription, error)
	// UpdateMetadata merges values into the subscription metadata.
	UpdateMetadata(ctx context.Context, id string, values map[string]string) error
}

var (
	ErrNotFound          = errors.New("subscription_not_found")
	ErrInvalidID         = errors.New("invalid_subscription_id")
	ErrSourceUnavailable = errors.New("subscription_source_unavailable")
	// ErrRejected marks requests the source refused; retrying will not help.
	ErrRejected = errors.New("subscription_source_rejected")
)
