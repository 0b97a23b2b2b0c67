package observability

import (
	"github.com/smallbiznis/quotedesk/internal/observability/logger"
	"github.com/smallbiznis/quotedesk/internal/observability/metrics"
	"github.com/smallbiznis/quotedesk/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(announce),
)

// announce forces the tracer provider and reports where quotedesk telemetry goes.
func announce(log *zap.Logger, cfg Config, _ *sdktrace.TracerProvider) {
	fields := []zap.Field{
		zap.String("log_level", cfg.LogLevel),
		zap.String("log_format", cfg.LogFormat),
		zap.Bool("otel_enabled", cfg.OtelEnabled),
	}
	if cfg.LogFile != "" {
		fields = append(fields, zap.String("log_file", cfg.LogFile), zap.Int("log_file_max_size_mb", cfg.LogFileMaxSizeMB))
	}
	if cfg.OtelEnabled {
		fields = append(fields,
			zap.String("otel_endpoint", cfg.OtelExporterEndpoint),
			zap.String("otel_protocol", cfg.OtelExporterProtocol),
			zap.Float64("otel_sampling_ratio", cfg.OtelSamplingRatio),
		)
	}
	log.Named("observability").Info("telemetry configured", fields...)
}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		FilePath:            cfg.LogFile,
		FileMaxSizeMB:       cfg.LogFileMaxSizeMB,
		FileMaxBackups:      cfg.LogFileMaxBackups,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}
