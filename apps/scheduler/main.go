package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookingsync/internal/account"
	"github.com/smallbiznis/bookingsync/internal/booking"
	"github.com/smallbiznis/bookingsync/internal/bookingsync"
	"github.com/smallbiznis/bookingsync/internal/clock"
	"github.com/smallbiznis/bookingsync/internal/config"
	"github.com/smallbiznis/bookingsync/internal/metricspush"
	"github.com/smallbiznis/bookingsync/internal/migration"
	"github.com/smallbiznis/bookingsync/internal/observability"
	"github.com/smallbiznis/bookingsync/internal/schedule"
	"github.com/smallbiznis/bookingsync/internal/scheduler"
	"github.com/smallbiznis/bookingsync/internal/stripe"
	"github.com/smallbiznis/bookingsync/internal/synclock"
	"github.com/smallbiznis/bookingsync/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		synclock.Module,
		metricspush.Module,

		// Domain services required by scheduler
		stripe.Module,
		account.Module,
		booking.Module,
		schedule.Module,
		bookingsync.Module,

		// No server module
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
