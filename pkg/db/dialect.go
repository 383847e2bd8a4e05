package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/bookingsync/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect picks the gorm driver for DB_TYPE. Postgres is the default and the
// only engine the SQL migrations target; mysql and sqlite serve local runs.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.DBType))
	switch kind {
	case "", "postgres":
		return postgres.Open(postgresDSN(cfg)), nil
	case "mysql":
		return mysql.Open(mysqlDSN(cfg)), nil
	case "sqlite":
		return sqlite.Open(sqliteFile(cfg.DBName)), nil
	default:
		return nil, fmt.Errorf("db: unsupported DB_TYPE %q", cfg.DBType)
	}
}

func postgresDSN(cfg config.Config) string {
	parts := []string{
		"host=" + cfg.DBHost,
		"port=" + cfg.DBPort,
		"user=" + cfg.DBUser,
		"password=" + cfg.DBPassword,
		"dbname=" + cfg.DBName,
		"sslmode=" + firstNonEmpty(cfg.DBSSLMode, "disable"),
		"TimeZone=UTC",
	}
	return strings.Join(parts, " ")
}

func mysqlDSN(cfg config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

func sqliteFile(name string) string {
	name = firstNonEmpty(name, "bookingsync")
	if name == ":memory:" || strings.HasSuffix(name, ".db") {
		return name
	}
	return name + ".db"
}

func firstNonEmpty(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
