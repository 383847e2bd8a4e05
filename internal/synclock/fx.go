package synclock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bookingsync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("synclock",
	fx.Provide(NewRedisClient),
	fx.Provide(New),
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Redis      *redis.Client `optional:"true"`
	SyncConfig *config.SyncConfigHolder
}

// New picks the Redis locker when a client is configured and the in-process
// locker otherwise.
func New(p Params) Locker {
	if p.Redis == nil {
		p.Log.Named("synclock").Info("synclock.local")
		return NewLocalLocker()
	}
	cfg := DefaultConfig()
	cfg.TTL = p.SyncConfig.Get().LockTTL
	return NewRedisLocker(p.Redis, cfg, p.Log)
}

// NewRedisClient returns nil when REDIS_ADDR is unset.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("synclock.redis.unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}
