package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exportInterval = 10 * time.Second

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

func (c Config) meterName() string {
	if name := strings.TrimSpace(c.ServiceName); name != "" {
		return name
	}
	return "bookingsync"
}

// Metrics holds the OTLP counters for webhook, sync and manual entry events.
// A nil *Metrics records nothing.
type Metrics struct {
	webhookEvents  metric.Int64Counter
	syncOutcomes   metric.Int64Counter
	bookingsBuilt  metric.Int64Counter
	manualEntries  metric.Int64Counter
	metadataPushes metric.Int64Counter
}

// NewProvider installs the global meter provider. Disabled configs get a noop
// provider so instruments can always be created.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	exporter, err := newExporter(context.Background(), cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval)),
	))
	otel.SetMeterProvider(provider)
	log.Info("otel.metrics.started",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	if lc != nil {
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
	}
	return provider, nil
}

// New creates the domain counters on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(cfg.meterName())
	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.webhookEvents, "bookingsync_webhook_events_total", "Webhook deliveries by event type and status."},
		{&m.syncOutcomes, "bookingsync_sync_outcomes_total", "Per-subscription sync results."},
		{&m.bookingsBuilt, "bookingsync_bookings_generated_total", "Bookings created by sync, by service family."},
		{&m.manualEntries, "bookingsync_manual_entries_total", "Schedules saved through the admin API."},
		{&m.metadataPushes, "bookingsync_metadata_pushes_total", "Manual schedules written back to subscription metadata."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, eventType, status string) {
	if m == nil {
		return
	}
	m.webhookEvents.Add(ctx, 1, attrs(
		attribute.String("provider", provider),
		attribute.String("event_type", eventType),
		attribute.String("status", status),
	))
}

// RecordSyncOutcome counts one subscription result and the bookings it created.
func (m *Metrics) RecordSyncOutcome(ctx context.Context, trigger, status, family string, created int) {
	if m == nil {
		return
	}
	m.syncOutcomes.Add(ctx, 1, attrs(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	))
	if created > 0 {
		m.bookingsBuilt.Add(ctx, int64(created), attrs(attribute.String("family", family)))
	}
}

func (m *Metrics) RecordManualEntry(ctx context.Context, pushed bool) {
	if m == nil {
		return
	}
	m.manualEntries.Add(ctx, 1)
	if pushed {
		m.metadataPushes.Add(ctx, 1)
	}
}

func attrs(kv ...attribute.KeyValue) metric.AddOption {
	for i := range kv {
		kv[i] = attribute.String(string(kv[i].Key), strings.TrimSpace(kv[i].Value.AsString()))
	}
	return metric.WithAttributes(FilterAttributes(kv...)...)
}

func newExporter(ctx context.Context, protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "", "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"provider":    {},
	"event_type":  {},
	"status":      {},
	"trigger":     {},
	"family":      {},
	"reason":      {},
}

// FilterAttributes drops labels outside the allow list. Subscription and
// customer ids never become label values.
func FilterAttributes(kv ...attribute.KeyValue) []attribute.KeyValue {
	out := kv[:0:0]
	for _, attr := range kv {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			out = append(out, attr)
		}
	}
	return out
}
