package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingsync/internal/booking/domain"
	dbutil "github.com/smallbiznis/bookingsync/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, b *domain.Booking) error {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO bookings (id, account_id, service_code, service_label, start_at, end_at, location, units, notes, status, source, subscription_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.AccountID,
		b.ServiceCode,
		b.ServiceLabel,
		b.StartAt.UTC(),
		b.EndAt.UTC(),
		b.Location,
		b.Units,
		b.Notes,
		b.Status,
		b.Source,
		b.SubscriptionID,
		b.CreatedAt.UTC(),
		b.UpdatedAt.UTC(),
	).Error
	if dbutil.IsDuplicateKeyErr(err) {
		return fmt.Errorf("%w: %w", domain.ErrDuplicate, err)
	}
	return err
}

// ExistsForAccountAt reports whether the account holds a manual or invoice
// booking at startAt. Subscription bookings never block each other.
func (r *repo) ExistsForAccountAt(ctx context.Context, db *gorm.DB, accountID snowflake.ID, startAt time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("account_id = ? AND start_at = ? AND source <> ?", accountID, startAt.UTC(), domain.SourceSubscription).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) DeleteFutureBySubscription(ctx context.Context, db *gorm.DB, subscriptionID string, from time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM bookings WHERE source = ? AND subscription_id = ? AND start_at >= ?`,
		domain.SourceSubscription,
		subscriptionID,
		from.UTC(),
	)
	return res.RowsAffected, res.Error
}

// DeleteFutureNotIn removes future subscription bookings whose subscription is
// not listed. An empty list deletes nothing.
func (r *repo) DeleteFutureNotIn(ctx context.Context, db *gorm.DB, activeIDs []string, from time.Time) (int64, error) {
	if len(activeIDs) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`DELETE FROM bookings WHERE source = ? AND start_at >= ? AND (subscription_id IS NULL OR subscription_id NOT IN ?)`,
		domain.SourceSubscription,
		from.UTC(),
		activeIDs,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Booking, error) {
	stmt := db.WithContext(ctx).Model(&domain.Booking{})
	if filter.AccountID != 0 {
		stmt = stmt.Where("account_id = ?", filter.AccountID)
	}
	if filter.SubscriptionID != "" {
		stmt = stmt.Where("subscription_id = ?", filter.SubscriptionID)
	}
	if filter.Source != "" {
		stmt = stmt.Where("source = ?", filter.Source)
	}
	if filter.From != nil {
		stmt = stmt.Where("start_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("start_at < ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	var bookings []domain.Booking
	if err := stmt.Order("start_at asc, id asc").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}
