// Package telemetry wraps the OpenTelemetry SDK into the thin span helper
// the engine uses for tracing each stage of a discovery run, grounded on the
// teacher's own telemetry provider shape but exporting via stdouttrace
// instead of an OTLP collector (no collector is assumed to be present).
package telemetry

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider owns the process-wide tracer and its exporter lifecycle.
type Provider struct {
	tracer        trace.Tracer
	traceProvider *sdktrace.TracerProvider
	shutdownOnce  sync.Once
}

// New builds a Provider. When enabled is false, spans are recorded but
// never exported (io.Discard sink) — tracing code paths still run, which
// catches wiring bugs even when nobody is reading the trace output.
func New(serviceName string, enabled bool) (*Provider, error) {
	var sink io.Writer = io.Discard
	if enabled {
		sink = os.Stdout
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(sink), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{
		tracer:        tp.Tracer("discovery-orchestrator"),
		traceProvider: tp,
	}, nil
}

// StartStage opens a span named for the given DAG stage, tagging it with
// the session id and iteration count so traces correlate with checkpoints.
func (p *Provider) StartStage(ctx context.Context, stageName, sessionID string, iteration int) (context.Context, trace.Span) {
	if p == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.tracer.Start(ctx, "stage."+stageName,
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.Int("iteration", iteration),
		),
	)
}

// EndStage closes span, recording err as a span error when non-nil.
func EndStage(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// Shutdown flushes and releases the exporter. Safe to call more than once.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.traceProvider == nil {
		return nil
	}
	var err error
	p.shutdownOnce.Do(func() {
		err = p.traceProvider.Shutdown(ctx)
	})
	return err
}
