// Package telemetry wires OpenTelemetry tracing around the engine's
// commit-writing operations (SPEC_FULL.md §4.4). It is deliberately
// minimal: a stdout exporter for local/dev visibility, no metrics, no
// remote collector configuration.
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName identifies spans emitted by the engine.
const TracerName = "github.com/qmx/sterna/internal/snapshot"

// NewTracerProvider returns a provider exporting spans as JSON lines to w.
// Passing io.Discard mutes tracing entirely while keeping the same code
// path exercised, which is what non-interactive library callers want.
func NewTracerProvider(ctx context.Context, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", "sterna"),
	))
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return provider, nil
}

// Tracer returns the engine's tracer, falling back to the global no-op
// provider when none has been configured.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Discard returns a tracer that records nothing, for callers (tests,
// scripts) that do not want tracing overhead.
func Discard() trace.Tracer {
	return noop.NewTracerProvider().Tracer(TracerName)
}
