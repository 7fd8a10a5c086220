package observe

import (
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid",
			cfg: Config{
				ServiceName: "tieredcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
				Logging:     LoggingConfig{Enabled: true, Level: "info", Format: "zap"},
			},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "unknown tracing exporter",
			cfg:     Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin"}},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name:    "sample pct above one",
			cfg:     Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, SamplePct: 1.5}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "negative sample pct",
			cfg:     Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, SamplePct: -0.1}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "disabled tracing skips exporter check",
			cfg:  Config{ServiceName: "s", Tracing: TracingConfig{Enabled: false, Exporter: "zipkin"}},
		},
		{
			name:    "unknown metrics exporter",
			cfg:     Config{ServiceName: "s", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name:    "unknown log level",
			cfg:     Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Level: "trace"}},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "unknown log format",
			cfg:     Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Format: "logfmt"}},
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "observe-test"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("expected non-nil tracer, meter and logger")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"json logs", "json"},
		{"zap logs", "zap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			obs, err := NewObserver(ctx, Config{
				ServiceName: "observe-test",
				Version:     "0.1.0",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
				Logging:     LoggingConfig{Enabled: true, Level: "error", Format: tt.format},
			})
			if err != nil {
				t.Fatalf("NewObserver() error = %v", err)
			}

			if _, err := NewCacheMetrics(obs.Meter()); err != nil {
				t.Errorf("NewCacheMetrics() error = %v", err)
			}
			if err := obs.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("NewObserver() error = %v, want ErrMissingServiceName", err)
	}
}

func TestObserver_ShutdownIdempotent(t *testing.T) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "observe-test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	for i := range 2 {
		if err := obs.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() call %d error = %v", i+1, err)
		}
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.pct).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}
