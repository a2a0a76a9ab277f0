package metrics

import (
	"context"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests     metric.Int64Counter
	HTTPDuration     metric.Float64Histogram
	InFlightRequests metric.Int64UpDownCounter
	ResourceErrors   metric.Int64Counter
	RateLimited      metric.Int64Counter
}

// Setup creates the instruments on a dedicated Prometheus registry and
// returns the handler that exposes it.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"publicator_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"publicator_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.InFlightRequests, err = meter.Int64UpDownCounter(
		"publicator_http_in_flight_requests",
		metric.WithDescription("Number of HTTP requests being served"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ResourceErrors, err = meter.Int64Counter(
		"publicator_resource_errors_total",
		metric.WithDescription("Requests rejected by the resource services, by resource and error kind"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RateLimited, err = meter.Int64Counter(
		"publicator_rate_limited_total",
		metric.WithDescription("Requests refused by the rate limiter"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordResourceError(ctx context.Context, resource, kind string) {
	m.ResourceErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("kind", kind),
	))
}

func (m *Metrics) RecordRateLimited(ctx context.Context) {
	m.RateLimited.Add(ctx, 1)
}

func (m *Metrics) IncrementInFlight(ctx context.Context) {
	m.InFlightRequests.Add(ctx, 1)
}

func (m *Metrics) DecrementInFlight(ctx context.Context) {
	m.InFlightRequests.Add(ctx, -1)
}
