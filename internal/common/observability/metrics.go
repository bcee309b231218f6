// internal/common/observability/metrics.go
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability owns the process-wide meter and tracer providers.
type Observability struct {
	meterProvider *metric.MeterProvider
	tracing       *tracing
	meter         otelmetric.Meter
	tracer        trace.Tracer
	opCounter     otelmetric.Int64Counter
	opDuration    otelmetric.Float64Histogram
}

// New wires the OpenTelemetry meter to the Prometheus registry and, when enabled, spans to Jaeger.
func New(serviceName string, tc TracingOptions) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	opCounter, err := meter.Int64Counter(
		"marketplace.operations",
		otelmetric.WithDescription("Domain operations processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create operations counter: %w", err)
	}

	opDuration, err := meter.Float64Histogram(
		"marketplace.operation.duration",
		otelmetric.WithDescription("Domain operation duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	tr, err := newTracing(serviceName, tc)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return &Observability{
		meterProvider: provider,
		tracing:       tr,
		meter:         meter,
		tracer:        otel.Tracer(serviceName),
		opCounter:     opCounter,
		opDuration:    opDuration,
	}, nil
}

// Nop returns an Observability that records nothing; used by tests and tools.
func Nop() *Observability {
	return &Observability{tracer: noop.NewTracerProvider().Tracer("nop")}
}

// StartSpan opens a span named after a domain operation.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("nop").Start(ctx, name)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordOperation counts one domain operation and its latency.
func (o *Observability) RecordOperation(ctx context.Context, operation, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	if o.opCounter != nil {
		o.opCounter.Add(ctx, 1, attrs)
	}
	if o.opDuration != nil {
		o.opDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstErr error
	if o.tracing != nil {
		firstErr = o.tracing.shutdown(ctx)
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
