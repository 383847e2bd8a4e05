package stripe

import (
	"github.com/smallbiznis/bookingsync/internal/config"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("stripe",
	fx.Provide(
		newClient,
		func(c *Client) subscriptiondomain.Source { return c },
		newWebhookVerifier,
	),
)

func newClient(cfg config.Config, holder *config.SyncConfigHolder, log *zap.Logger) *Client {
	if cfg.Stripe.APIKey == "" {
		log.Warn("stripe.api_key.missing")
	}
	return NewClient(cfg.Stripe, log, WithStatuses(func() []string {
		return holder.Get().ActiveStatuses
	}))
}

func newWebhookVerifier(cfg config.Config) *WebhookVerifier {
	return NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)
}
