package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
)

// Service names reported on every span
const (
	ServiceAPI    = "crux-journal-api"
	ServiceWorker = "crux-journal-worker"
)

// Options configures the tracer provider
type Options struct {
	ServiceName string
	Endpoint    string
	// SampleRatio is the fraction of new traces kept; 0 or anything >= 1 samples everything
	SampleRatio float64
	// Insecure disables TLS to the collector
	Insecure bool
}

// ShutdownFunc flushes and stops tracing
type ShutdownFunc func(context.Context) error

// Setup installs a global OTLP/HTTP tracer provider and W3C propagation.
// Parent sampling decisions are honored so traces started by the frontend stay whole.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("OTLP endpoint is required")
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(opts.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := NewProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res), sdktrace.WithSampler(sampler(opts.SampleRatio)))
	return tp.Shutdown, nil
}

// NewProvider builds a tracer provider and registers it globally along with the propagators
func NewProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Tracer returns a named tracer from the global provider
func Tracer(component string) trace.Tracer {
	return otel.Tracer("crux-journal/" + component)
}
