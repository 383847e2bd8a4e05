package domain

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/bookingsync/internal/catalog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cache row provenance.
const (
	CacheSourceSync   = "sync"
	CacheSourceManual = "manual"
)

// CacheEntry is the locally persisted copy of a subscription schedule.
type CacheEntry struct {
	SubscriptionID string            `gorm:"primaryKey;column:subscription_id" json:"subscription_id"`
	Days           string            `gorm:"not null" json:"days"`
	StartTime      *string           `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime        *string           `gorm:"column:end_time" json:"end_time,omitempty"`
	Units          int               `gorm:"not null" json:"units"`
	Location       string            `gorm:"not null" json:"location"`
	Notes          string            `gorm:"not null" json:"notes"`
	ServiceCode    string            `gorm:"not null" json:"service_code"`
	Source         string            `gorm:"not null" json:"source"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updated_at"`
}

func (CacheEntry) TableName() string { return "subscription_schedules" }

// FullyPopulated reports whether every required field carries a usable value.
// The 09:00/10:00 placeholders only count as real on rows a person wrote.
func (c CacheEntry) FullyPopulated() bool {
	if len(ParseDays(c.Days)) == 0 {
		return false
	}
	start, ok := c.Start()
	if !ok {
		return false
	}
	end, ok := c.End()
	if !ok || start == end {
		return false
	}
	if c.Source != CacheSourceManual && (start == SentinelStart || end == SentinelEnd) {
		return false
	}
	if !catalog.IsOvernight(c.ServiceCode) && end.Minutes() < start.Minutes() {
		return false
	}
	return strings.TrimSpace(c.Location) != "" && c.Units > 0
}

// Start parses the cached start time.
func (c CacheEntry) Start() (TimeOfDay, bool) {
	if c.StartTime == nil {
		return TimeOfDay{}, false
	}
	return ParseTimeOfDay(*c.StartTime)
}

// End parses the cached end time.
func (c CacheEntry) End() (TimeOfDay, bool) {
	if c.EndTime == nil {
		return TimeOfDay{}, false
	}
	return ParseTimeOfDay(*c.EndTime)
}

// Repository persists schedule cache rows.
type Repository interface {
	Get(ctx context.Context, db *gorm.DB, subscriptionID string) (*CacheEntry, error)
	GetMany(ctx context.Context, db *gorm.DB, subscriptionIDs []string) (map[string]CacheEntry, error)
	Upsert(ctx context.Context, db *gorm.DB, entry *CacheEntry) error
}
