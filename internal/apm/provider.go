// Package apm configures the OpenTelemetry trace provider.
package apm

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/flash-arb/internal/logger"
)

// Provider selects the span exporter backend.
type Provider string

const (
	ZipkinProvider   Provider = "ZIPKIN_PROVIDER"
	OTLPGRPCProvider Provider = "OTLP_GRPC_PROVIDER"
	OTLPHTTPProvider Provider = "OTLP_HTTP_PROVIDER"
	ConsoleProvider  Provider = "CONSOLE_PROVIDER"
	EmptyProvider    Provider = "EMPTY_PROVIDER"
)

// TraceProvider owns the SDK tracer provider lifecycle.
type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

func (p *traceProvider) Stop() error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

type options struct {
	exporter sdktrace.SpanExporter
	empty    bool
}

// Option configures the trace provider.
type Option func(*options)

// WithProvider selects an exporter backend. Unknown providers fall back to a
// no-op provider rather than failing startup.
func WithProvider(provider Provider, log logger.LoggerInterface) Option {
	return func(o *options) {
		var err error
		switch provider {
		case ZipkinProvider:
			o.exporter, err = zipkin.New(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
		case OTLPGRPCProvider:
			o.exporter, err = otlptracegrpc.New(context.Background())
		case OTLPHTTPProvider:
			o.exporter, err = otlptracehttp.New(context.Background())
		case ConsoleProvider:
			o.exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		default:
			log.Warn(context.Background(), "unknown trace provider, tracing disabled", "provider", string(provider))
			o.empty = true
			return
		}
		if err != nil {
			log.Warn(context.Background(), "trace exporter init failed, tracing disabled", "error", err)
			o.empty = true
		}
	}
}

// NewTraceProvider builds and installs the global tracer provider.
func NewTraceProvider(log logger.LoggerInterface, opts ...Option) TraceProvider {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.empty || o.exporter == nil {
		return &traceProvider{}
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(o.exporter),
		sdktrace.WithResource(
			resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName)),
		),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &traceProvider{tp: tp}
}
