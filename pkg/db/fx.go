package db

import (
	"context"

	"github.com/smallbiznis/bookingsync/internal/config"
	obslogger "github.com/smallbiznis/bookingsync/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Module = fx.Module("db",
	fx.Provide(provideDB),
)

type dbParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     config.Config
	Log        *zap.Logger
	GormLogger *obslogger.GormLogger `optional:"true"`
}

func provideDB(p dbParams) (*gorm.DB, error) {
	dialector, err := Dialect(p.Config)
	if err != nil {
		return nil, err
	}
	var gormLogger logger.Interface
	if p.GormLogger != nil {
		gormLogger = p.GormLogger
	}
	conn, err := Open(dialector, ConfigFrom(p.Config), gormLogger)
	if err != nil {
		return nil, err
	}
	p.Log.Info("db.connected",
		zap.String("type", p.Config.DBType),
		zap.String("host", p.Config.DBHost),
		zap.String("name", p.Config.DBName),
	)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return conn, nil
}
