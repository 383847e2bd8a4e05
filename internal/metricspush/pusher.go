// Package metricspush ships prometheus metrics from processes that expose
// no /metrics endpoint.
package metricspush

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/bookingsync/internal/config"
	"go.uber.org/zap"
)

// Supported METRICS_PUSH_EXPORTER values.
const (
	ExporterRemoteWrite = "prometheus_remote_write"
	ExporterPushgateway = "prometheus_pushgateway"
)

const defaultPushTimeout = 5 * time.Second

// Pusher sends one snapshot of gathered metrics.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewPusher returns nil when pushing is disabled or misconfigured; a bad
// setting is logged rather than failing startup.
func NewPusher(cfg config.Config, log *zap.Logger) Pusher {
	if log == nil {
		log = zap.NewNop()
	}
	exporter := strings.ToLower(strings.TrimSpace(cfg.MetricsPush.Exporter))
	if exporter == "" {
		return nil
	}
	endpoint := strings.TrimSpace(cfg.MetricsPush.Endpoint)
	disabled := func(reason string) Pusher {
		log.Warn("metricspush.disabled",
			zap.String("exporter", exporter),
			zap.String("reason", reason),
		)
		return nil
	}
	if endpoint == "" {
		return disabled("missing_endpoint")
	}

	switch exporter {
	case ExporterRemoteWrite:
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return disabled("invalid_endpoint")
		}
		return NewRemoteWritePusher(endpoint, cfg.MetricsPush.AuthToken)
	case ExporterPushgateway:
		return NewPushgatewayPusher(endpoint, cfg.AppName, map[string]string{
			"environment": cfg.Environment,
		})
	default:
		return disabled("unknown_exporter")
	}
}
