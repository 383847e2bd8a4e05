package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// Resolve maps a billing customer id to a local account id using db,
	// which is normally the caller's open transaction.
	Resolve(ctx context.Context, db *gorm.DB, externalID string) (snowflake.ID, error)
}

var (
	ErrNotFound = errors.New("account_not_found")
)
