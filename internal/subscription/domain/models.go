// Package domain describes subscriptions as seen by the booking engine: a
// read-only, normalized view of records owned by the external billing system.
package domain

import "strings"

// Status values reported by the billing system.
const (
	StatusActive            = "active"
	StatusTrialing          = "trialing"
	StatusPastDue           = "past_due"
	StatusCanceled          = "canceled"
	StatusUnpaid            = "unpaid"
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusPaused            = "paused"
)

// Subscription is a normalized external subscription.
type Subscription struct {
	ID         string
	CustomerID string
	Status     string
	Metadata   map[string]string
	Items      []LineItem
}

// LineItem is one priced line of a subscription.
type LineItem struct {
	PriceID         string
	PriceNickname   string
	PriceMetadata   map[string]string
	ProductID       string
	ProductName     string
	ProductMetadata map[string]string
	Quantity        int64
}

// Meta returns the trimmed metadata value for key.
func (s Subscription) Meta(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(s.Metadata[key])
}

// HasStatus reports whether the subscription status is one of statuses.
func (s Subscription) HasStatus(statuses ...string) bool {
	for _, status := range statuses {
		if strings.EqualFold(strings.TrimSpace(s.Status), status) {
			return true
		}
	}
	return false
}

// DefaultActiveStatuses are treated as active when no override is configured.
func DefaultActiveStatuses() []string {
	return []string{StatusActive, StatusTrialing}
}
