package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// KEYS[1] bucket hash; ARGV rate per second, burst, ttl ms.
// Tokens go back as a string because Redis truncates Lua numbers to integers.
var tokenBucketScript = redis.NewScript(`
local rate, burst, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3])
local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens, last = tonumber(state[1]), tonumber(state[2])
if tokens == nil then
  tokens = burst
elseif now > last then
  tokens = math.min(burst, tokens + (now - last) / 1000 * rate)
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end
redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, tostring(tokens), now}
`)

var (
	ErrNotConfigured = errors.New("ratelimit: not configured")
	ErrEmptyKey      = errors.New("ratelimit: empty key")
	ErrInvalidRate   = errors.New("ratelimit: rate and burst must be positive")
)

// TokenBucket refills continuously at rate tokens per second up to burst.
// State lives in a Redis hash so every replica shares one bucket per key.
type TokenBucket struct {
	client *redis.Client
}

// RateLimitResult is the outcome of one Allow call.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	switch {
	case t == nil || t.client == nil:
		return nil, ErrNotConfigured
	case key == "":
		return nil, ErrEmptyKey
	case rate <= 0 || burst <= 0:
		return nil, ErrInvalidRate
	}

	reply, err := tokenBucketScript.Run(ctx, t.client, []string{key},
		rate, burst, bucketTTL(rate, burst).Milliseconds()).Slice()
	if err != nil {
		return nil, err
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("ratelimit: unexpected script reply of %d values", len(reply))
	}

	tokens := toFloat(reply[1])
	res := &RateLimitResult{
		Allowed:   toFloat(reply[0]) == 1,
		Limit:     burst,
		Remaining: int(tokens),
		ResetTime: time.UnixMilli(int64(toFloat(reply[2]))),
	}
	if !res.Allowed {
		res.RetryAfter = time.Duration((1 - tokens) / rate * float64(time.Second))
		res.ResetTime = res.ResetTime.Add(res.RetryAfter)
	}
	return res, nil
}

// bucketTTL keeps idle buckets for twice the time a full refill takes.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Max(1, math.Ceil(2*float64(burst)/rate))
	return time.Duration(seconds) * time.Second
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
