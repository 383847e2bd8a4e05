package migration

import (
	"strings"

	"github.com/smallbiznis/bookingsync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.MigrateOnStart {
			return nil
		}
		if dbType := strings.ToLower(strings.TrimSpace(cfg.DBType)); dbType != "" && dbType != "postgres" {
			log.Warn("migration.skipped", zap.String("db_type", dbType))
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("migration.applied")
		return nil
	}),
)
