package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// newPrometheusReader returns an OTel metric reader backed by a private
// Prometheus registry, plus the handler that serves that registry.
func newPrometheusReader() (sdkmetric.Reader, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return exporter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// NewPrometheusMeterProvider returns a MeterProvider whose instruments are
// served in Prometheus exposition format by the returned handler. Each call
// uses an independent registry.
func NewPrometheusMeterProvider() (*sdkmetric.MeterProvider, http.Handler, error) {
	reader, handler, err := newPrometheusReader()
	if err != nil {
		return nil, nil, err
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), handler, nil
}
