package db

import (
	"time"

	"github.com/smallbiznis/bookingsync/internal/config"
)

// Config carries connection pool and plugin settings.
type Config struct {
	Name            string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// MetricsRefresh is how often pool statistics are exported.
	MetricsRefresh time.Duration
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Name:            cfg.DBName,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Second,
		MetricsRefresh:  15 * time.Second,
	}
}
