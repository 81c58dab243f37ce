package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultServiceName is the service.name resource attribute used when none
// is configured.
const DefaultServiceName = "termgraph"

// ErrNoEndpoint is returned by NewTracerProvider when endpoint is empty.
var ErrNoEndpoint = errors.New("otlp endpoint is required")

// NewTracerProvider creates a tracer provider that batches spans to an OTLP
// HTTP collector at endpoint (a full URL such as http://localhost:4318).
// Callers must Shutdown the provider to flush pending spans.
func NewTracerProvider(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	), nil
}
