// Package observability wires logging, tracing and metrics for every
// bookingsync process.
package observability

import (
	"github.com/smallbiznis/bookingsync/internal/observability/logger"
	"github.com/smallbiznis/bookingsync/internal/observability/metrics"
	"github.com/smallbiznis/bookingsync/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(
		func(cfg Config) logger.Config { return cfg.loggerConfig() },
		logger.New,
		func(log *zap.Logger, cfg Config) *logger.GormLogger {
			return logger.NewGormLogger(log, cfg.gormConfig())
		},
	),
	fx.Provide(
		func(cfg Config) tracing.Config { return cfg.tracingConfig() },
		tracing.NewProvider,
	),
	fx.Provide(
		func(cfg Config) metrics.Config { return cfg.metricsConfig() },
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		// Process-wide prometheus collectors; registering twice panics.
		metrics.SyncWithConfig,
	),
	// Force construction so globals are installed before the first request.
	fx.Invoke(func(*sdktrace.TracerProvider, *metrics.SyncMetrics) {}),
)

func (c Config) loggerConfig() logger.Config {
	debug := c.Debug()
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               debug,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
}

func (c Config) gormConfig() logger.GormLoggerConfig {
	cfg := logger.DefaultGormLoggerConfig(c.Debug())
	if c.DBSlowQuery > 0 {
		cfg.SlowThreshold = c.DBSlowQuery
	}
	return cfg
}

func (c Config) tracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) metricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
