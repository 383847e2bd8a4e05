package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingsync/internal/account/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const backfillSavepoint = "account_backfill"

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:  p.Log.Named("account.service"),
		repo: p.Repo,
	}
}

func (s *Service) Resolve(ctx context.Context, db *gorm.DB, externalID string) (snowflake.ID, error) {
	externalID = strings.TrimSpace(externalID)
	if !strings.HasPrefix(externalID, domain.ExternalIDPrefix) || len(externalID) == len(domain.ExternalIDPrefix) {
		return 0, domain.ErrNotFound
	}

	id, err := s.repo.FindIDByExternalID(ctx, db, externalID)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}

	id, err = s.repo.FindIDByLegacyID(ctx, db, externalID)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, domain.ErrNotFound
	}

	s.backfill(ctx, db, id, externalID)
	return id, nil
}

// backfill copies a legacy id into the preferred column. Failures roll back
// to a savepoint so the surrounding transaction stays usable.
func (s *Service) backfill(ctx context.Context, db *gorm.DB, id snowflake.ID, externalID string) {
	log := s.log.With(
		zap.String("account_id", id.String()),
		zap.String("external_customer_id", externalID),
	)
	if err := db.SavePoint(backfillSavepoint).Error; err != nil {
		log.Warn("account.backfill.skipped", zap.Error(err))
		return
	}
	if err := s.repo.BackfillExternalID(ctx, db, id, externalID); err != nil {
		if rbErr := db.RollbackTo(backfillSavepoint).Error; rbErr != nil {
			log.Error("account.backfill.rollback_failed", zap.Error(rbErr))
		}
		log.Warn("account.backfill.failed", zap.Error(err))
		return
	}
	log.Info("account.backfill.done")
}
