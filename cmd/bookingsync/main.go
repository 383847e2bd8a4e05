package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingsync/internal/account"
	"github.com/smallbiznis/bookingsync/internal/booking"
	"github.com/smallbiznis/bookingsync/internal/bookingsync"
	"github.com/smallbiznis/bookingsync/internal/clock"
	"github.com/smallbiznis/bookingsync/internal/config"
	"github.com/smallbiznis/bookingsync/internal/migration"
	"github.com/smallbiznis/bookingsync/internal/observability"
	"github.com/smallbiznis/bookingsync/internal/ratelimit"
	"github.com/smallbiznis/bookingsync/internal/schedule"
	"github.com/smallbiznis/bookingsync/internal/scheduler"
	"github.com/smallbiznis/bookingsync/internal/server"
	"github.com/smallbiznis/bookingsync/internal/stripe"
	"github.com/smallbiznis/bookingsync/internal/synclock"
	"github.com/smallbiznis/bookingsync/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		synclock.Module,
		ratelimit.Module,

		// Sync domain
		stripe.Module,
		account.Module,
		booking.Module,
		schedule.Module,
		bookingsync.Module,

		// Entry points
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
