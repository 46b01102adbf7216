package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Tracing owns the OTLP trace pipeline. When no endpoint is configured the
// global tracer stays a no-op and request handling pays nothing.
type Tracing struct {
	provider *sdktrace.TracerProvider
}

// SetupTracing installs a tracer provider exporting to the given OTLP/HTTP
// endpoint and registers it globally.
func SetupTracing(ctx context.Context, endpoint string, insecure bool) (*Tracing, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observe: create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("stopkran"),
		attribute.String("service.component", "daemon"),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return &Tracing{provider: tp}, nil
}

// Shutdown flushes buffered spans and stops the pipeline.
func (t *Tracing) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
