package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/bookingsync/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:       "production",
		LogLevel:          " INFO ",
		OTLPProtocol:      "HTTP",
		OTelSamplingRatio: 4,
	})

	assert.Equal(t, defaultServiceName, cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestDebugFollowsLevelAndEnvironment(t *testing.T) {
	assert.True(t, Config{Environment: "local"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "debug"}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}

func TestGormConfigUsesSlowQueryThreshold(t *testing.T) {
	cfg := Config{Environment: "production", DBSlowQuery: time.Second}.gormConfig()
	assert.Equal(t, time.Second, cfg.SlowThreshold)

	cfg = Config{Environment: "production"}.gormConfig()
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)
}
