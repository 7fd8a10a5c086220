package observe

import (
	"context"
	"runtime"
	"time"
)

// DefaultSlowThreshold is the duration above which a monitored call is
// logged as slow.
const DefaultSlowThreshold = time.Second

// ExecuteFunc is the signature of functions wrapped by Monitor.
type ExecuteFunc func(ctx context.Context) (any, error)

// MemorySampler reports the current memory usage of the process in bytes.
type MemorySampler interface {
	Sample() uint64
}

// MemorySamplerFunc adapts a function to MemorySampler.
type MemorySamplerFunc func() uint64

// Sample calls f.
func (f MemorySamplerFunc) Sample() uint64 { return f() }

// RuntimeMemorySampler samples the Go heap in use.
func RuntimeMemorySampler() MemorySampler {
	return MemorySamplerFunc(func() uint64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return ms.HeapAlloc
	})
}

// Monitor wraps functions with tracing, metrics and logging, and warns when a
// call exceeds the slow threshold.
//
// Contract:
//   - Concurrency: Wrap returns a function safe for concurrent use when the
//     wrapped function is.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
//   - Ownership: results pass through without modification.
type Monitor struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	memory  MemorySampler
	slow    time.Duration
	now     func() time.Time
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithSlowThreshold sets the slow-call threshold. Zero disables the warning.
func WithSlowThreshold(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.slow = d
	}
}

// WithMemorySampler replaces the runtime memory sampler.
func WithMemorySampler(s MemorySampler) MonitorOption {
	return func(m *Monitor) {
		if s != nil {
			m.memory = s
		}
	}
}

// WithMonitorClock sets the clock used to time calls.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMonitor creates a Monitor. Nil components are replaced with no-ops.
func NewMonitor(tracer Tracer, metrics Metrics, logger Logger, opts ...MonitorOption) *Monitor {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	m := &Monitor{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		memory:  RuntimeMemorySampler(),
		slow:    DefaultSlowThreshold,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MonitorFromObserver creates a Monitor from an Observer.
func MonitorFromObserver(obs Observer, opts ...MonitorOption) (*Monitor, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMonitor(NewTracer(obs.Tracer()), metrics, obs.Logger(), opts...), nil
}

// Wrap returns fn instrumented as op.
func (m *Monitor) Wrap(op Operation, fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, op)

		memBefore := m.memory.Sample()
		start := m.now()

		result, err := fn(ctx)

		duration := m.now().Sub(start)
		memDelta := int64(m.memory.Sample()) - int64(memBefore)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, op, duration, memDelta, err)

		logger := m.logger.With(F("op", op.ID()))
		fields := []Field{
			F("duration_ms", float64(duration.Microseconds())/1000),
			F("memory_delta_bytes", memDelta),
		}

		if err != nil {
			fields = append(fields, F("error", err.Error()))
			logger.Error(ctx, "operation failed", fields...)
		} else {
			logger.Info(ctx, "operation completed", fields...)
		}
		if m.slow > 0 && duration > m.slow {
			logger.Warn(ctx, "slow operation", F("duration_ms", float64(duration.Microseconds())/1000), F("threshold_ms", m.slow.Milliseconds()))
		}

		return result, err
	}
}

// Monitored instruments a typed function with m.
func Monitored[R any](m *Monitor, op Operation, fn func(context.Context) (R, error)) func(context.Context) (R, error) {
	wrapped := m.Wrap(op, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	return func(ctx context.Context) (R, error) {
		v, err := wrapped(ctx)
		result, _ := v.(R)
		return result, err
	}
}
