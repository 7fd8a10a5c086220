package observe

import (
	"fmt"
	"slices"
)

// Config selects which telemetry signals the cache service emits and where
// they go.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|jaeger|stdout|none
	SamplePct float64 // 0.0-1.0
}

// MetricsConfig configures the meter provider behind CacheMetrics.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig configures the engine and service logger.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error
	Format  string // json|zap, empty means json
}

// An empty name always selects the default.
var (
	tracingExporters = []string{"", "none", "stdout", "otlp", "jaeger"}
	metricsExporters = []string{"", "none", "stdout", "otlp", "prometheus"}
	logLevels        = []string{"", "debug", "info", "warn", "error"}
	logFormats       = []string{"", "json", "zap"}
)

// Validate checks the enabled sections. Disabled sections are not inspected.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if err := c.Tracing.validate(); err != nil {
		return err
	}
	if err := c.Metrics.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (t TracingConfig) validate() error {
	if !t.Enabled {
		return nil
	}
	if !slices.Contains(tracingExporters, t.Exporter) {
		return fmt.Errorf("%w: unknown tracing exporter %q", ErrInvalidTracingExporter, t.Exporter)
	}
	if t.SamplePct < MinSamplePct || t.SamplePct > MaxSamplePct {
		return fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, t.SamplePct)
	}
	return nil
}

func (m MetricsConfig) validate() error {
	if m.Enabled && !slices.Contains(metricsExporters, m.Exporter) {
		return fmt.Errorf("%w: unknown metrics exporter %q", ErrInvalidMetricsExporter, m.Exporter)
	}
	return nil
}

func (l LoggingConfig) validate() error {
	if !l.Enabled {
		return nil
	}
	if !slices.Contains(logLevels, l.Level) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidLogLevel, l.Level)
	}
	if !slices.Contains(logFormats, l.Format) {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidLogFormat, l.Format)
	}
	return nil
}
