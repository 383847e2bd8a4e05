// Package ratelimit throttles operator-triggered syncs across replicas.
package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bookingsync/internal/config"
	"go.uber.org/zap"
)

const keyPrefix = "bookingsync:ratelimit:"

// Limiter applies one rate to every key. A nil Limiter, or one without Redis,
// allows everything.
type Limiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

// NewAdminSyncLimiter returns nil when the limit is disabled.
func NewAdminSyncLimiter(client *redis.Client, cfg config.Config, log *zap.Logger) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ratelimit")
	if client == nil || cfg.AdminSyncPerMinute <= 0 {
		log.Info("ratelimit.disabled")
		return nil
	}
	return NewLimiter(client, cfg.AdminSyncPerMinute/60, cfg.AdminSyncBurst, log)
}

// NewLimiter allows ratePerSecond sustained with bursts up to burst.
func NewLimiter(client *redis.Client, ratePerSecond float64, burst int, log *zap.Logger) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{
		bucket: NewTokenBucket(client),
		rate:   ratePerSecond,
		burst:  burst,
		log:    log,
	}
}

// Allow takes a token for key. Redis failures fail open.
func (l *Limiter) Allow(ctx context.Context, key string) *RateLimitResult {
	if l == nil || l.bucket == nil || l.rate <= 0 {
		return &RateLimitResult{Allowed: true}
	}
	key = strings.TrimSpace(key)
	res, err := l.bucket.Allow(ctx, keyPrefix+key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("ratelimit.check.failed", zap.String("key", key), zap.Error(err))
		return &RateLimitResult{Allowed: true, Limit: l.burst}
	}
	return res
}
