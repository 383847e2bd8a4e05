package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("family", "walk"),
		attribute.String("subscription_id", "sub_123"),
		attribute.String("status", "synced"),
	)
	require.Len(t, attrs, 2)
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("subscription_id"), attr.Key)
	}
}

func TestMetricsRecordCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(Config{ServiceName: "bookingsync-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordWebhookEvent(ctx, "stripe", "customer.subscription.updated", "processed")
	m.RecordSyncOutcome(ctx, "webhook", "synced", "walk", 3)
	m.RecordSyncOutcome(ctx, "scheduler", "skipped", "walk", 0)
	m.RecordManualEntry(ctx, true)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	totals := map[string]int64{}
	for _, md := range rm.ScopeMetrics[0].Metrics {
		sum, ok := md.Data.(metricdata.Sum[int64])
		require.True(t, ok, md.Name)
		for _, dp := range sum.DataPoints {
			totals[md.Name] += dp.Value
		}
	}
	assert.Equal(t, int64(1), totals["bookingsync_webhook_events_total"])
	assert.Equal(t, int64(2), totals["bookingsync_sync_outcomes_total"])
	assert.Equal(t, int64(3), totals["bookingsync_bookings_generated_total"])
	assert.Equal(t, int64(1), totals["bookingsync_manual_entries_total"])
	assert.Equal(t, int64(1), totals["bookingsync_metadata_pushes_total"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordWebhookEvent(context.Background(), "stripe", "x", "ignored")
	m.RecordSyncOutcome(context.Background(), "webhook", "synced", "walk", 1)
	m.RecordManualEntry(context.Background(), false)
}
