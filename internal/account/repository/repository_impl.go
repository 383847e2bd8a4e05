package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingsync/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindIDByExternalID(ctx context.Context, db *gorm.DB, externalID string) (snowflake.ID, error) {
	return r.findID(ctx, db, `SELECT id FROM accounts WHERE external_customer_id = ? LIMIT 1`, externalID)
}

func (r *repo) FindIDByLegacyID(ctx context.Context, db *gorm.DB, externalID string) (snowflake.ID, error) {
	return r.findID(ctx, db, `SELECT id FROM accounts WHERE legacy_customer_id = ? ORDER BY id LIMIT 1`, externalID)
}

func (r *repo) findID(ctx context.Context, db *gorm.DB, query string, arg string) (snowflake.ID, error) {
	var ids []int64
	if err := db.WithContext(ctx).Raw(query, arg).Scan(&ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return snowflake.ID(ids[0]), nil
}

func (r *repo) BackfillExternalID(ctx context.Context, db *gorm.DB, id snowflake.ID, externalID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounts SET external_customer_id = ? WHERE id = ? AND external_customer_id IS NULL`,
		externalID,
		id,
	).Error
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (id, name, email, external_customer_id, legacy_customer_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Name,
		account.Email,
		account.ExternalCustomerID,
		account.LegacyCustomerID,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}
