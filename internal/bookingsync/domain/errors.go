package domain

import (
	"errors"
	"fmt"
)

// Category classifies why a subscription failed to sync.
type Category string

const (
	CategoryAccountUnresolved Category = "account_unresolved"
	CategoryExternalSource    Category = "external_source"
	CategoryPersistence       Category = "persistence"
	CategoryValidation        Category = "validation"
)

// SyncError is a failure scoped to one subscription.
type SyncError struct {
	SubscriptionID string
	Category       Category
	Message        string
	Err            error
}

func (e *SyncError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sync %s: %s: %s", e.SubscriptionID, e.Category, e.Message)
	}
	return fmt.Sprintf("sync %s: %s: %s: %v", e.SubscriptionID, e.Category, e.Message, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func newSyncError(id string, category Category, msg string, err error) *SyncError {
	return &SyncError{SubscriptionID: id, Category: category, Message: msg, Err: err}
}

func AccountUnresolved(id, customerID string, err error) *SyncError {
	return newSyncError(id, CategoryAccountUnresolved, fmt.Sprintf("no local account for customer %q", customerID), err)
}

func ExternalSource(id, msg string, err error) *SyncError {
	return newSyncError(id, CategoryExternalSource, msg, err)
}

func Persistence(id, msg string, err error) *SyncError {
	return newSyncError(id, CategoryPersistence, msg, err)
}

func Validation(id, msg string, err error) *SyncError {
	return newSyncError(id, CategoryValidation, msg, err)
}

// CategoryOf extracts the category of a SyncError anywhere in err's chain.
func CategoryOf(err error) (Category, bool) {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Category, true
	}
	return "", false
}

var (
	ErrInvalidSubscriptionID = errors.New("invalid_subscription_id")
	ErrInvalidHorizon        = errors.New("invalid_horizon")
	ErrLockUnavailable       = errors.New("sync_lock_unavailable")
)
