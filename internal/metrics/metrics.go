// Package metrics configures the OpenTelemetry meter provider and exposes a
// Prometheus scrape endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

// MetricProvider is the subset of the SDK provider the application uses.
type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

// Config holds meter provider settings.
type Config struct {
	ServiceName    string
	UsePrometheus  bool
	OTLPEndpoint   string // non-empty enables the OTLP gRPC reader
	OTLPInsecure   bool
	OTLPHeaders    map[string]string
}

// OptionFn mutates the metrics config.
type OptionFn func(Config) Config

// WithServiceName sets the service name on the exported resource.
func WithServiceName(name string) OptionFn {
	return func(cfg Config) Config {
		cfg.ServiceName = name
		return cfg
	}
}

// WithPrometheus enables the pull-based Prometheus reader.
func WithPrometheus() OptionFn {
	return func(cfg Config) Config {
		cfg.UsePrometheus = true
		return cfg
	}
}

// WithOTLP enables the push-based OTLP gRPC reader.
func WithOTLP(endpoint string, insecure bool, headers map[string]string) OptionFn {
	return func(cfg Config) Config {
		cfg.OTLPEndpoint = endpoint
		cfg.OTLPInsecure = insecure
		cfg.OTLPHeaders = headers
		return cfg
	}
}

// NewMetricProvider builds the global meter provider from the options and
// installs it via otel.SetMeterProvider.
func NewMetricProvider(options ...OptionFn) (MetricProvider, error) {
	ctx := context.Background()

	var cfg Config
	for _, opt := range options {
		cfg = opt(cfg)
	}

	var readers []sdkmetric.Reader

	if cfg.UsePrometheus {
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		readers = append(readers, exp)
	}

	if cfg.OTLPEndpoint != "" {
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp))
	}

	providerOpts := []sdkmetric.Option{
		sdkmetric.WithResource(
			resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
		),
	}
	for _, r := range readers {
		providerOpts = append(providerOpts, sdkmetric.WithReader(r))
	}

	provider := sdkmetric.NewMeterProvider(providerOpts...)
	otel.SetMeterProvider(provider)

	return provider, nil
}

// ServePrometheusMetrics serves /metrics on the given port. Blocks until the
// server exits; run it in its own goroutine.
func ServePrometheusMetrics(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
