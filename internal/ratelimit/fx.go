package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bookingsync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(provideAdminSyncLimiter),
)

type limiterParams struct {
	fx.In

	Redis  *redis.Client `optional:"true"`
	Config config.Config
	Log    *zap.Logger
}

func provideAdminSyncLimiter(p limiterParams) *Limiter {
	return NewAdminSyncLimiter(p.Redis, p.Config, p.Log)
}
