package repository

import (
	"context"

	"github.com/smallbiznis/bookingsync/internal/schedule/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, subscriptionID string) (*domain.CacheEntry, error) {
	var entries []domain.CacheEntry
	err := db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *repo) GetMany(ctx context.Context, db *gorm.DB, subscriptionIDs []string) (map[string]domain.CacheEntry, error) {
	out := make(map[string]domain.CacheEntry, len(subscriptionIDs))
	if len(subscriptionIDs) == 0 {
		return out, nil
	}
	var entries []domain.CacheEntry
	err := db.WithContext(ctx).
		Where("subscription_id IN ?", subscriptionIDs).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.SubscriptionID] = e
	}
	return out, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, entry *domain.CacheEntry) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subscription_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"days",
				"start_time",
				"end_time",
				"units",
				"location",
				"notes",
				"service_code",
				"source",
				"metadata",
				"updated_at",
			}),
		}).
		Create(entry).Error
}
