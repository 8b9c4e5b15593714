// Package httpclient provides an instrumented HTTP client with OTEL tracing and metrics.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultDialKeepAlive   = 10 * time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute

	metricRequestCounter = "http_client_requests_total"
)

// Options holds client configuration.
type Options struct {
	providerName string
	baseURL      string
	timeout      time.Duration
	headers      map[string]string
}

// Option configures the client.
type Option func(*Options)

// WithProviderName labels the client's metrics with the upstream provider.
func WithProviderName(name string) Option {
	return func(o *Options) { o.providerName = name }
}

// WithBaseURL prefixes every request path with a base URL.
func WithBaseURL(url string) Option {
	return func(o *Options) { o.baseURL = url }
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.timeout = timeout }
}

// WithHeaders sets default headers applied to every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *Options) { o.headers = headers }
}

// Client is an http.Client wrapped with OTEL trace propagation and a
// per-provider request counter.
type Client struct {
	client       *http.Client
	providerName string
	baseURL      string
	headers      map[string]string
	requests     metric.Int64Counter
}

// New creates an instrumented HTTP client.
func New(opts ...Option) (*Client, error) {
	options := &Options{
		providerName: "default",
		timeout:      defaultRequestTimeout,
	}
	for _, o := range opts {
		o(options)
	}

	transport := otelhttp.NewTransport(
		&http.Transport{
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		},
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	meter := otel.Meter("httpclient",
		metric.WithInstrumentationAttributes(attribute.String("provider", options.providerName)))
	requests, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: &http.Client{
			Timeout:   options.timeout,
			Transport: transport,
		},
		providerName: options.providerName,
		baseURL:      options.baseURL,
		headers:      options.headers,
		requests:     requests,
	}, nil
}

// Do executes a prepared request.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.client.Do(req.WithContext(ctx))

	status := "error"
	if err == nil {
		status = fmt.Sprintf("%dxx", resp.StatusCode/100)
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", c.providerName),
		attribute.String("status", status),
	))
	return resp, err
}

// GetJSON fetches baseURL+path and decodes the JSON body into out. Non-2xx
// responses are errors.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("httpclient: %s %s: status %d: %s",
			req.Method, req.URL, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
