// Package tracing installs the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var ErrFailedToCreateExporter = errors.New("tracing: failed to create exporter")

type Config struct {
	Enabled     bool    `env:"TRACING_ENABLED" envDefault:"false"`                // Enabled turns on export; otherwise a no-op provider is used.
	Endpoint    string  `env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4318"` // Endpoint is the OTLP/HTTP collector host:port.
	Insecure    bool    `env:"TRACING_OTLP_INSECURE" envDefault:"true"`           // Insecure disables TLS to the collector.
	SampleRatio float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"1"`               // SampleRatio is the parent-based trace ID ratio.
}

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// Setup builds a provider for cfg, installs it globally and returns it with its shutdown hook.
func Setup(ctx context.Context, cfg Config, serviceName, version string) (trace.TracerProvider, ShutdownFunc, error) {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Join(ErrFailedToCreateExporter, err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, tp.Shutdown, nil
}
