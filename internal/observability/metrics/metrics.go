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
	analyticsRuns      metric.Int64Counter
	analyticsFailures  metric.Int64Counter
	alertsRaised       metric.Int64Counter
	alertsResolved     metric.Int64Counter
	entityNameFallback metric.Int64Counter
	snapshotRows       metric.Int64Counter
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
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fleetops"
	}
	meter := provider.Meter(name)

	analyticsRuns, err := meter.Int64Counter("fleetops_analytics_runs_total")
	if err != nil {
		return nil, err
	}
	analyticsFailures, err := meter.Int64Counter("fleetops_analytics_failures_total")
	if err != nil {
		return nil, err
	}
	alertsRaised, err := meter.Int64Counter("fleetops_alerts_raised_total")
	if err != nil {
		return nil, err
	}
	alertsResolved, err := meter.Int64Counter("fleetops_alerts_resolved_total")
	if err != nil {
		return nil, err
	}
	entityNameFallback, err := meter.Int64Counter("fleetops_entity_name_fallback_total")
	if err != nil {
		return nil, err
	}
	snapshotRows, err := meter.Int64Counter("fleetops_snapshot_rows_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		analyticsRuns:      analyticsRuns,
		analyticsFailures:  analyticsFailures,
		alertsRaised:       alertsRaised,
		alertsResolved:     alertsResolved,
		entityNameFallback: entityNameFallback,
		snapshotRows:       snapshotRows,
	}, nil
}

// RecordAnalyticsRun counts one computation run for the named component.
func (m *Metrics) RecordAnalyticsRun(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.analyticsRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// RecordAnalyticsFailure counts a failed computation run.
func (m *Metrics) RecordAnalyticsFailure(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.analyticsFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// RecordAlertRaised counts a freshly raised operational event.
func (m *Metrics) RecordAlertRaised(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.alertsRaised.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// RecordAlertResolved counts an alert transition to resolved.
func (m *Metrics) RecordAlertResolved(ctx context.Context) {
	if m == nil {
		return
	}
	m.alertsResolved.Add(ctx, 1)
}

// RecordEntityNameFallback counts an entity-name lookup that degraded to
// the fallback label; a climbing rate is a data-quality signal.
func (m *Metrics) RecordEntityNameFallback(ctx context.Context, entityType string) {
	if m == nil {
		return
	}
	m.entityNameFallback.Add(ctx, 1, metric.WithAttributes(attribute.String("entity_type", entityType)))
}

// RecordSnapshotRows counts performance-metric rows written by the
// snapshot job.
func (m *Metrics) RecordSnapshotRows(ctx context.Context, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.snapshotRows.Add(ctx, n)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
