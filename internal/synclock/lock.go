// Package synclock serializes work on a single subscription across
// goroutines and, when Redis is configured, across processes.
package synclock

import (
	"context"
	"errors"
	"time"
)

// Locker hands out exclusive, context-bounded locks keyed by name.
type Locker interface {
	// Acquire blocks until key is held or ctx ends. The returned func
	// releases the lock and is safe to call more than once.
	Acquire(ctx context.Context, key string) (func(), error)
}

var (
	ErrEmptyKey    = errors.New("lock key is empty")
	ErrInvalidTTL  = errors.New("lock ttl must be positive")
	ErrNotAcquired = errors.New("lock not acquired")
)

// Config tunes lock behaviour.
type Config struct {
	KeyPrefix    string
	TTL          time.Duration
	PollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		KeyPrefix:    "bookingsync:sync:",
		TTL:          2 * time.Minute,
		PollInterval: 100 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.KeyPrefix == "" {
		c.KeyPrefix = d.KeyPrefix
	}
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}
