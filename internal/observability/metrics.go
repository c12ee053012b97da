// Package observability exposes pipeline metrics through OpenTelemetry
// with a Prometheus exporter. A disabled collector is a safe no-op so
// callers never branch on metrics availability.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig configures the collector.
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`
}

// MetricsCollector records the pipeline's operational counters.
type MetricsCollector struct {
	meter metric.Meter

	signalsIn     metric.Int64Counter
	signalsGated  metric.Int64Counter
	eventsEmitted metric.Int64Counter
	eventsMerged  metric.Int64Counter
	llmFallbacks  metric.Int64Counter
	batchLatency  metric.Float64Histogram

	prometheusServer *http.Server
}

// NewMetricsCollector builds a collector. When disabled it records
// nothing and starts no server.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter("cadence")

	signalsIn, err := meter.Int64Counter(
		"cadence.pipeline.signals.total",
		metric.WithDescription("Total signals entering the pipeline"),
		metric.WithUnit("{signal}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signals counter: %w", err)
	}
	signalsGated, err := meter.Int64Counter(
		"cadence.pipeline.signals.gated",
		metric.WithDescription("Signals dropped per pipeline stage"),
		metric.WithUnit("{signal}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gated counter: %w", err)
	}
	eventsEmitted, err := meter.Int64Counter(
		"cadence.pipeline.events.emitted",
		metric.WithDescription("Draft events emitted"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create emitted counter: %w", err)
	}
	eventsMerged, err := meter.Int64Counter(
		"cadence.pipeline.events.merged",
		metric.WithDescription("Candidates merged into dedup survivors"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create merged counter: %w", err)
	}
	llmFallbacks, err := meter.Int64Counter(
		"cadence.intent.fallbacks",
		metric.WithDescription("Structured extractions that degraded to defaults"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}
	batchLatency, err := meter.Float64Histogram(
		"cadence.pipeline.batch.latency",
		metric.WithDescription("Pipeline batch latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	collector := &MetricsCollector{
		meter:         meter,
		signalsIn:     signalsIn,
		signalsGated:  signalsGated,
		eventsEmitted: eventsEmitted,
		eventsMerged:  eventsMerged,
		llmFallbacks:  llmFallbacks,
		batchLatency:  batchLatency,
	}

	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}
	return collector, nil
}

// StartPrometheusServer exposes /metrics for scraping.
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())
	m.prometheusServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = m.prometheusServer.ListenAndServe()
	}()
	return nil
}

// Shutdown stops the scrape server if one is running.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m.prometheusServer == nil {
		return nil
	}
	return m.prometheusServer.Shutdown(ctx)
}

// RecordSignals counts signals entering a batch.
func (m *MetricsCollector) RecordSignals(ctx context.Context, count int) {
	if m == nil || m.signalsIn == nil {
		return
	}
	m.signalsIn.Add(ctx, int64(count))
}

// RecordGated counts signals dropped at a named stage.
func (m *MetricsCollector) RecordGated(ctx context.Context, stage string, count int) {
	if m == nil || m.signalsGated == nil || count <= 0 {
		return
	}
	m.signalsGated.Add(ctx, int64(count), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordEmitted counts final draft events.
func (m *MetricsCollector) RecordEmitted(ctx context.Context, count int) {
	if m == nil || m.eventsEmitted == nil {
		return
	}
	m.eventsEmitted.Add(ctx, int64(count))
}

// RecordMerged counts candidates folded into dedup survivors.
func (m *MetricsCollector) RecordMerged(ctx context.Context, count int) {
	if m == nil || m.eventsMerged == nil || count <= 0 {
		return
	}
	m.eventsMerged.Add(ctx, int64(count))
}

// RecordFallback counts a structured extraction that used defaults.
func (m *MetricsCollector) RecordFallback(ctx context.Context) {
	if m == nil || m.llmFallbacks == nil {
		return
	}
	m.llmFallbacks.Add(ctx, 1)
}

// RecordBatchLatency records one batch's wall time.
func (m *MetricsCollector) RecordBatchLatency(ctx context.Context, elapsed time.Duration) {
	if m == nil || m.batchLatency == nil {
		return
	}
	m.batchLatency.Record(ctx, elapsed.Seconds())
}
