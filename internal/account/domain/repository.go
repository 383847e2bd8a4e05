package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindIDByExternalID(ctx context.Context, db *gorm.DB, externalID string) (snowflake.ID, error)
	FindIDByLegacyID(ctx context.Context, db *gorm.DB, externalID string) (snowflake.ID, error)
	BackfillExternalID(ctx context.Context, db *gorm.DB, id snowflake.ID, externalID string) error
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
}
