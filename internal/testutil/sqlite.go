// Package testutil builds throwaway databases for package tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		external_customer_id TEXT,
		legacy_customer_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_accounts_external_customer_id ON accounts (external_customer_id)`,
	`CREATE TABLE bookings (
		id INTEGER PRIMARY KEY,
		account_id INTEGER NOT NULL,
		service_code TEXT NOT NULL,
		service_label TEXT NOT NULL,
		start_at DATETIME NOT NULL,
		end_at DATETIME NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		units INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		source TEXT NOT NULL CHECK (source IN ('subscription', 'manual', 'invoice')),
		subscription_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_bookings_subscription_start ON bookings (subscription_id, start_at) WHERE source = 'subscription'`,
	`CREATE INDEX ix_bookings_account_start ON bookings (account_id, start_at)`,
	`CREATE TABLE subscription_schedules (
		subscription_id TEXT PRIMARY KEY,
		days TEXT NOT NULL DEFAULT '',
		start_time TEXT,
		end_time TEXT,
		units INTEGER NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		service_code TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'sync',
		metadata TEXT,
		updated_at DATETIME NOT NULL
	)`,
}

// OpenSQLite returns an in-memory database carrying the booking schema. A
// single connection keeps the memory database alive for the whole test.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
