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

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	quotesSaved   metric.Int64Counter
	draftFlushes  metric.Int64Counter
	draftCommits  metric.Int64Counter
	exports       metric.Int64Counter
	notifications metric.Int64Counter
	jobRuns       metric.Int64Counter
	jobDuration   metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "quotedesk"
	}
	meter := provider.Meter(name)

	quotesSaved, err := meter.Int64Counter("quotedesk_quotes_saved_total")
	if err != nil {
		return nil, err
	}
	draftFlushes, err := meter.Int64Counter("quotedesk_draft_flushes_total")
	if err != nil {
		return nil, err
	}
	draftCommits, err := meter.Int64Counter("quotedesk_draft_commits_total")
	if err != nil {
		return nil, err
	}
	exports, err := meter.Int64Counter("quotedesk_exports_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("quotedesk_notifications_total")
	if err != nil {
		return nil, err
	}
	jobRuns, err := meter.Int64Counter("quotedesk_scheduler_job_runs_total")
	if err != nil {
		return nil, err
	}
	jobDuration, err := meter.Float64Histogram("quotedesk_scheduler_job_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		quotesSaved:   quotesSaved,
		draftFlushes:  draftFlushes,
		draftCommits:  draftCommits,
		exports:       exports,
		notifications: notifications,
		jobRuns:       jobRuns,
		jobDuration:   jobDuration,
	}, nil
}

// RecordQuoteSaved counts persisted quotes by operation (create, update, clone, restore).
func (m *Metrics) RecordQuoteSaved(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", strings.TrimSpace(operation)))
	m.quotesSaved.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDraftFlush counts auto-save writes; outcome is "ok" or "error".
func (m *Metrics) RecordDraftFlush(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.draftFlushes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDraftCommit(ctx context.Context) {
	if m == nil {
		return
	}
	m.draftCommits.Add(ctx, 1)
}

func (m *Metrics) RecordExport(ctx context.Context, format string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("format", strings.TrimSpace(format)))
	m.exports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordJobRun counts scheduler job runs; outcome is "ok", "error" or "timeout".
func (m *Metrics) RecordJobRun(ctx context.Context, job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("job", strings.TrimSpace(job)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.jobRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.jobDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(FilterAttributes(attribute.String("job", strings.TrimSpace(job)))...))
}

func (m *Metrics) RecordNotification(ctx context.Context, level string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("level", strings.TrimSpace(level)))
	m.notifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"outcome":     {},
	"format":      {},
	"job":         {},
	"level":       {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
