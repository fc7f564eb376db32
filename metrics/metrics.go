// Package metrics records per-model invocation outcomes through OpenTelemetry.
// Instruments default to no-ops so the library stays silent unless a
// MeterProvider is supplied.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instrument names.
const (
	MeterName           = "github.com/hupe1980/modelcouncil"
	MetricModelCalls    = "council.model.calls"
	MetricModelDuration = "council.model.duration"
)

// Outcome attribute values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder counts model calls and records their latency.
type Recorder struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a Recorder from the given MeterProvider.
func New(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		return Noop(), nil
	}
	meter := mp.Meter(MeterName)
	calls, err := meter.Int64Counter(
		MetricModelCalls,
		metric.WithDescription("Total number of model invocations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric %s: %w", MetricModelCalls, err)
	}
	duration, err := meter.Float64Histogram(
		MetricModelDuration,
		metric.WithDescription("Duration of model invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric %s: %w", MetricModelDuration, err)
	}
	return &Recorder{calls: calls, duration: duration}, nil
}

// Noop returns a Recorder that discards everything.
func Noop() *Recorder {
	return &Recorder{calls: noop.Int64Counter{}, duration: noop.Float64Histogram{}}
}

// RecordCall records one model invocation. kind is only attached on failure.
func (r *Recorder) RecordCall(ctx context.Context, model string, success bool, kind string, dur time.Duration) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	attrs := []attribute.KeyValue{attribute.String("model", model)}
	if !success {
		outcome = OutcomeFailure
		attrs = append(attrs, attribute.String("kind", kind))
	}
	attrs = append(attrs, attribute.String("outcome", outcome))
	set := metric.WithAttributes(attrs...)
	r.calls.Add(ctx, 1, set)
	r.duration.Record(ctx, dur.Seconds(), set)
}
