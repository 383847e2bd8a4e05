package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	bookingsyncdomain "github.com/smallbiznis/bookingsync/internal/bookingsync/domain"
	obscontext "github.com/smallbiznis/bookingsync/internal/observability/context"
	"github.com/smallbiznis/bookingsync/internal/stripe"
	"go.uber.org/zap"
)

const (
	webhookProvider = "stripe"
	maxWebhookBody  = 1 << 20
)

// Webhook delivery statuses recorded in metrics.
const (
	webhookRejected  = "rejected"
	webhookIgnored   = "ignored"
	webhookProcessed = "processed"
	webhookFailed    = "failed"
	webhookRetry     = "retry"
)

func (s *Server) HandleStripeWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, webhookProvider, "", webhookRejected)
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.verifier.Verify(payload, c.Request.Header); err != nil {
		s.log.Warn("webhook.signature.rejected", zap.Error(err))
		s.obsMetrics.RecordWebhookEvent(ctx, webhookProvider, "", webhookRejected)
		AbortWithError(c, err)
		return
	}

	event, err := stripe.ParseEvent(payload)
	if event.Type != "" {
		c.Set("webhook_event_type", event.Type)
	}
	switch {
	case errors.Is(err, stripe.ErrEventIgnored):
		s.obsMetrics.RecordWebhookEvent(ctx, webhookProvider, event.Type, webhookIgnored)
		c.JSON(http.StatusOK, gin.H{"status": webhookIgnored})
		return
	case err != nil:
		s.log.Warn("webhook.payload.invalid", zap.Error(err))
		s.obsMetrics.RecordWebhookEvent(ctx, webhookProvider, event.Type, webhookRejected)
		AbortWithError(c, err)
		return
	}

	ctx = obscontext.WithActor(ctx, "webhook", webhookProvider)
	horizon := s.tuning.Get().HorizonDays

	var out bookingsyncdomain.Outcome
	switch event.Type {
	case stripe.EventSubscriptionDeleted, stripe.EventSubscriptionPaused:
		// The payload already carries the final status; inactive subscriptions are purged.
		out = s.syncSvc.SyncLoaded(ctx, event.Subscription, horizon)
		if out.Failed() {
			err = &bookingsyncdomain.SyncError{
				SubscriptionID: out.SubscriptionID,
				Category:       out.Category,
				Message:        out.Message,
			}
		}
	default:
		out, err = s.syncSvc.SyncSubscription(ctx, event.Subscription.ID, horizon)
	}

	log := s.log.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("subscription_id", event.Subscription.ID),
		zap.String("status", string(out.Status)),
	)

	if err != nil && retryableWebhookFailure(out, err) {
		log.Warn("webhook.sync.retry", zap.Error(err))
		s.obsMetrics.RecordWebhookEvent(ctx, webhookProvider, event.Type, webhookRetry)
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	status := webhookProcessed
	if err != nil {
		status = webhookFailed
		log.Warn("webhook.sync.failed", zap.Error(err))
	} else {
		log.Info("webhook.sync.completed",
			zap.Int("bookings_created", out.BookingsCreated),
			zap.Int("bookings_removed", out.BookingsRemoved),
		)
	}
	s.obsMetrics.RecordWebhookEvent(ctx, webhookProvider, event.Type, status)
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"outcome": out,
	})
}

// retryableWebhookFailure reports whether a redelivery could succeed. Stripe
// retries deliveries answered with a 5xx.
func retryableWebhookFailure(out bookingsyncdomain.Outcome, err error) bool {
	if errors.Is(err, bookingsyncdomain.ErrLockUnavailable) {
		return true
	}
	category, ok := bookingsyncdomain.CategoryOf(err)
	if !ok {
		category = out.Category
	}
	switch category {
	case bookingsyncdomain.CategoryExternalSource, bookingsyncdomain.CategoryPersistence, "":
		return true
	default:
		return false
	}
}
