package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingsync/internal/account/domain"
	"github.com/smallbiznis/bookingsync/internal/account/repository"
	"github.com/smallbiznis/bookingsync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type countingRepo struct {
	domain.Repository
	lookups     int
	backfillErr error
}

func (r *countingRepo) FindIDByExternalID(ctx context.Context, db *gorm.DB, externalID string) (snowflake.ID, error) {
	r.lookups++
	return r.Repository.FindIDByExternalID(ctx, db, externalID)
}

func (r *countingRepo) FindIDByLegacyID(ctx context.Context, db *gorm.DB, externalID string) (snowflake.ID, error) {
	r.lookups++
	return r.Repository.FindIDByLegacyID(ctx, db, externalID)
}

func (r *countingRepo) BackfillExternalID(ctx context.Context, db *gorm.DB, id snowflake.ID, externalID string) error {
	if r.backfillErr != nil {
		// Leave a write behind so the savepoint rollback is observable.
		if err := db.WithContext(ctx).Exec(`UPDATE accounts SET name = 'clobbered' WHERE id = ?`, id).Error; err != nil {
			return err
		}
		return r.backfillErr
	}
	return r.Repository.BackfillExternalID(ctx, db, id, externalID)
}

func strPtr(s string) *string { return &s }

func seedAccount(t *testing.T, db *gorm.DB, id int64, external, legacy *string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, repository.Provide().Insert(context.Background(), db, &domain.Account{
		ID:                 snowflake.ID(id),
		Name:               "Client",
		Email:              "client@example.com",
		ExternalCustomerID: external,
		LegacyCustomerID:   legacy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}))
}

func newService(t *testing.T, repo domain.Repository) domain.Service {
	return New(Params{Log: zaptest.NewLogger(t), Repo: repo})
}

func TestResolveRejectsMalformedIDsWithoutLookup(t *testing.T) {
	repo := &countingRepo{Repository: repository.Provide()}
	svc := newService(t, repo)

	for _, id := range []string{"", "   ", "cus_", "12345", "sub_123", "CUS_123", "acct_cus_1"} {
		_, err := svc.Resolve(context.Background(), nil, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, "id %q", id)
	}
	assert.Equal(t, 0, repo.lookups)
}

func TestResolvePreferredColumn(t *testing.T) {
	db := testutil.OpenSQLite(t)
	seedAccount(t, db, 1, strPtr("cus_a"), nil)
	svc := newService(t, repository.Provide())

	id, err := svc.Resolve(context.Background(), db, "cus_a")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1), id)

	_, err = svc.Resolve(context.Background(), db, "cus_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveLegacyColumnBackfills(t *testing.T) {
	db := testutil.OpenSQLite(t)
	seedAccount(t, db, 7, nil, strPtr("cus_legacy"))
	svc := newService(t, repository.Provide())

	err := db.Transaction(func(tx *gorm.DB) error {
		id, err := svc.Resolve(context.Background(), tx, "cus_legacy")
		if err != nil {
			return err
		}
		assert.Equal(t, snowflake.ID(7), id)
		return nil
	})
	require.NoError(t, err)

	var row struct{ ExternalCustomerID *string }
	require.NoError(t, db.Raw(`SELECT external_customer_id FROM accounts WHERE id = 7`).Scan(&row).Error)
	require.NotNil(t, row.ExternalCustomerID)
	assert.Equal(t, "cus_legacy", *row.ExternalCustomerID)

	repo := &countingRepo{Repository: repository.Provide()}
	id, err := newService(t, repo).Resolve(context.Background(), db, "cus_legacy")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(7), id)
	assert.Equal(t, 1, repo.lookups)
}

func TestResolveBackfillFailureIsBestEffort(t *testing.T) {
	db := testutil.OpenSQLite(t)
	seedAccount(t, db, 9, nil, strPtr("cus_old"))
	repo := &countingRepo{Repository: repository.Provide(), backfillErr: errors.New("write refused")}
	svc := newService(t, repo)

	err := db.Transaction(func(tx *gorm.DB) error {
		id, err := svc.Resolve(context.Background(), tx, "cus_old")
		if err != nil {
			return err
		}
		assert.Equal(t, snowflake.ID(9), id)
		return tx.Exec(`UPDATE accounts SET email = 'after@example.com' WHERE id = 9`).Error
	})
	require.NoError(t, err)

	var row struct {
		Name               string
		Email              string
		ExternalCustomerID *string
	}
	require.NoError(t, db.Raw(`SELECT name, email, external_customer_id FROM accounts WHERE id = 9`).Scan(&row).Error)
	assert.Equal(t, "Client", row.Name)
	assert.Equal(t, "after@example.com", row.Email)
	assert.Nil(t, row.ExternalCustomerID)
}
