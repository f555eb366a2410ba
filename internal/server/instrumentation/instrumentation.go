// Package instrumentation owns the OpenTelemetry meters and tracer used by
// the token services. Providers default to no-op implementations.
package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scope = "github.com/dmitrijs2005/authkeeper/tokens"

// Rejection reasons recorded on authkeeper.tokens.rejected.
const (
	ReasonNotRecognized = "not_recognized"
	ReasonExpired       = "expired"
	ReasonRevoked       = "revoked"
	ReasonConsumed      = "consumed"
	ReasonEmpty         = "empty"
)

// Instruments bundles the token counters and tracer.
type Instruments struct {
	issued   metric.Int64Counter
	rotated  metric.Int64Counter
	rejected metric.Int64Counter
	reuse    metric.Int64Counter
	tracer   trace.Tracer
}

// New creates instruments from the given providers. Nil providers fall back
// to no-op ones.
func New(mp metric.MeterProvider, tp trace.TracerProvider) (*Instruments, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	meter := mp.Meter(scope)

	in := &Instruments{tracer: tp.Tracer(scope)}

	var err error
	in.issued, err = meter.Int64Counter(
		"authkeeper.tokens.issued",
		metric.WithDescription("Number of token pairs issued"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.issued counter: %w", err)
	}

	in.rotated, err = meter.Int64Counter(
		"authkeeper.tokens.rotated",
		metric.WithDescription("Number of successful refresh token rotations"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.rotated counter: %w", err)
	}

	in.rejected, err = meter.Int64Counter(
		"authkeeper.tokens.rejected",
		metric.WithDescription("Number of rejected refresh attempts by reason"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.rejected counter: %w", err)
	}

	in.reuse, err = meter.Int64Counter(
		"authkeeper.tokens.reuse_detected",
		metric.WithDescription("Number of presentations of an already revoked refresh token"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.reuse_detected counter: %w", err)
	}

	return in, nil
}

// Noop returns instruments that record nothing.
func Noop() *Instruments {
	in, _ := New(nil, nil)
	return in
}

func (in *Instruments) RecordIssued(ctx context.Context) {
	in.issued.Add(ctx, 1)
}

func (in *Instruments) RecordRotated(ctx context.Context) {
	in.rotated.Add(ctx, 1)
}

func (in *Instruments) RecordRejected(ctx context.Context, reason string) {
	in.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (in *Instruments) RecordReuse(ctx context.Context) {
	in.reuse.Add(ctx, 1)
}

// StartSpan starts a span named name under the token tracer.
func (in *Instruments) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
