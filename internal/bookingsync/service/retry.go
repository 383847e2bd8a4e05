package service

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"go.uber.org/zap"
)

// retry runs fn with the configured per-call timeout and one retry. Missing
// or malformed subscriptions fail immediately.
func retry[T any](ctx context.Context, s *Service, operation string, fn func(context.Context) (T, error)) (T, error) {
	timeout := s.cfg.Get().ExternalTimeout
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		if attempt > 1 {
			s.metrics.IncExternalRetry(operation)
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		v, err := fn(callCtx)
		if err == nil {
			return v, nil
		}
		if permanent(err) || ctx.Err() != nil {
			return v, backoff.Permanent(err)
		}
		s.log.Warn("bookingsync.source.call_failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return v, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.retryDelay)),
		backoff.WithMaxTries(2),
	)
}

func permanent(err error) bool {
	return errors.Is(err, subscriptiondomain.ErrNotFound) ||
		errors.Is(err, subscriptiondomain.ErrInvalidID) ||
		errors.Is(err, subscriptiondomain.ErrRejected) ||
		errors.Is(err, context.Canceled)
}
