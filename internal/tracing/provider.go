package tracing

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewTracerProvider builds a tracer provider whose spans are echoed to the
// given logger. It is registered globally so every component can pick up the
// tracer via otel.Tracer.
func NewTracerProvider(logger *slog.Logger, verbose bool) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&loggingSpanProcessor{
			verbose: verbose,
			logger:  logger,
		}),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// Tracer returns the tracer used for the per-turn answer pipeline.
func Tracer() trace.Tracer {
	return otel.Tracer("caresetu/core")
}
