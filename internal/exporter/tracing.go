package exporter

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerWrapper provides nil-safe access to an OpenTelemetry tracer.
// When no TracerProvider is injected it falls back to the noop provider,
// so callers never need to guard span operations and tracing adds no
// overhead when disabled.
type TracerWrapper struct {
	tracer trace.Tracer
}

// NewTracerWrapper creates a wrapper over the given provider's tracer.
// A nil provider yields a noop tracer.
func NewTracerWrapper(tp trace.TracerProvider, name string) *TracerWrapper {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &TracerWrapper{tracer: tp.Tracer(name)}
}

// StartSpan starts a span with the given operation name and span kind.
// The returned span is always valid (noop when tracing is disabled).
func (w *TracerWrapper) StartSpan(ctx context.Context, operation string, kind trace.SpanKind) (context.Context, trace.Span) {
	return w.tracer.Start(ctx, operation, trace.WithSpanKind(kind))
}
