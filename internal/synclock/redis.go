package synclock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker holds locks as SET NX keys with a random token so only the
// owner can release them. Keys expire after the TTL if the owner dies.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	cfg    Config
	log    *zap.Logger
}

func NewRedisLocker(client *redis.Client, cfg Config, log *zap.Logger) *RedisLocker {
	if client == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(releaseScript),
		cfg:    cfg.withDefaults(),
		log:    log.Named("synclock"),
	}
}

// TryLock makes one attempt at taking key.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if ttl <= 0 {
		return "", false, ErrInvalidTTL
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release deletes key if token still owns it.
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	full := l.cfg.KeyPrefix + key
	for {
		token, ok, err := l.TryLock(ctx, full, l.cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := l.Release(relCtx, full, token); err != nil {
						l.log.Warn("synclock.release.failed", zap.String("key", full), zap.Error(err))
					}
				})
			}, nil
		}

		timer := time.NewTimer(l.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-timer.C:
		}
	}
}
