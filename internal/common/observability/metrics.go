// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records run-level metrics through an otel meter exported to
// the default prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	runCounter    otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	recordCounter otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName)
}

// NewWithReader builds an instance over a caller-supplied reader. Tests pass
// a metric.NewManualReader to inspect what was recorded.
func NewWithReader(reader metric.Reader, serviceName string) *Observability {
	return newWithProvider(metric.NewMeterProvider(metric.WithReader(reader)), serviceName)
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	runCounter, _ := meter.Int64Counter(
		"discovery.runs",
		otelmetric.WithDescription("Number of discovery runs"),
	)

	runDuration, _ := meter.Float64Histogram(
		"discovery.run.duration",
		otelmetric.WithDescription("Discovery run duration"),
		otelmetric.WithUnit("ms"),
	)

	recordCounter, _ := meter.Int64Counter(
		"discovery.records",
		otelmetric.WithDescription("Accepted business records"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		runCounter:    runCounter,
		runDuration:   runDuration,
		recordCounter: recordCounter,
	}
}

// RecordRun records one finished run. A nil receiver is a no-op.
func (o *Observability) RecordRun(ctx context.Context, status string, records int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("status", status))

	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.recordCounter != nil {
		o.recordCounter.Add(ctx, int64(records), attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
