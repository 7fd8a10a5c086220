// Package exporters builds the OpenTelemetry span exporters and metric readers
// selected by name in observe.Config.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrEndpointNotConfigured indicates the endpoint environment variable for an
// OTLP exporter is unset.
var ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

// Endpoint variables consulted per exporter, most general first.
var (
	otlpTraceEnv  = []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"}
	otlpMetricEnv = []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"}
	jaegerEnv     = []string{"OTEL_EXPORTER_JAEGER_ENDPOINT"}
)

// endpoint returns the first non-empty variable among names, or an error
// naming all of them.
func endpoint(names []string) (string, error) {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: set one of %v", ErrEndpointNotConfigured, names)
}

// NewTracingExporter returns the span exporter called name: stdout, otlp,
// jaeger or none. The empty name means none.
func NewTracingExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	switch name {
	case "", "none":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())
	case "otlp":
		if _, err := endpoint(otlpTraceEnv); err != nil {
			return nil, err
		}
		// The otlp client reads the same variables itself.
		return otlptracegrpc.New(ctx)
	case "jaeger":
		// Jaeger ingests OTLP natively on its own endpoint.
		url, err := endpoint(jaegerEnv)
		if err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(url))
	default:
		return nil, fmt.Errorf("unknown exporter: %q", name)
	}
}

// NewMetricsReader returns the metric reader called name: stdout, otlp,
// prometheus or none. The empty name means none.
//
// The prometheus reader registers with the default Prometheus registerer, so
// promhttp.Handler serves its metrics.
func NewMetricsReader(ctx context.Context, name string) (sdkmetric.Reader, error) {
	switch name {
	case "", "none":
		return sdkmetric.NewManualReader(), nil
	case "prometheus":
		reader, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return reader, nil
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "otlp":
		if _, err := endpoint(otlpMetricEnv); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", name)
	}
}
