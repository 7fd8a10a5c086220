package observe

import "errors"

// Config validation errors.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
	ErrInvalidLogFormat       = errors.New("observe: invalid log format")
)

// ErrNilObserver is returned by constructors that require an Observer.
var ErrNilObserver = errors.New("observe: observer is nil")

// Bounds for TracingConfig.SamplePct.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)
