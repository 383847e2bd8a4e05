// Package domain defines persisted bookings.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const StatusScheduled = "scheduled"

var ErrDuplicate = errors.New("booking_duplicate")

// Provenance tags.
const (
	SourceSubscription = "subscription"
	SourceManual       = "manual"
	SourceInvoice      = "invoice"
)

// Booking is one appointment for an account. Subscription-sourced rows are
// only ever inserted or deleted, never updated in place.
type Booking struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID      snowflake.ID `gorm:"not null;index" json:"account_id"`
	ServiceCode    string       `gorm:"not null" json:"service_code"`
	ServiceLabel   string       `gorm:"not null" json:"service_label"`
	StartAt        time.Time    `gorm:"not null" json:"start_at"`
	EndAt          time.Time    `gorm:"not null" json:"end_at"`
	Location       string       `gorm:"not null" json:"location"`
	Units          int          `gorm:"not null" json:"units"`
	Notes          string       `gorm:"not null" json:"notes"`
	Status         string       `gorm:"not null" json:"status"`
	Source         string       `gorm:"not null" json:"source"`
	SubscriptionID *string      `gorm:"index" json:"subscription_id,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// ListFilter narrows List.
type ListFilter struct {
	AccountID      snowflake.ID
	SubscriptionID string
	Source         string
	From           *time.Time
	To             *time.Time
	Limit          int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	ExistsForAccountAt(ctx context.Context, db *gorm.DB, accountID snowflake.ID, startAt time.Time) (bool, error)
	DeleteFutureBySubscription(ctx context.Context, db *gorm.DB, subscriptionID string, from time.Time) (int64, error)
	DeleteFutureNotIn(ctx context.Context, db *gorm.DB, activeIDs []string, from time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Booking, error)
}
