package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Cache tiers reported on cache.gets.
const (
	TierLocal  = "local"
	TierRemote = "remote"
)

// CacheMetrics records cache engine activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording is never blocking.
// - Errors: implementations must not panic.
type CacheMetrics interface {
	// RecordGet records one lookup answered by tier.
	RecordGet(ctx context.Context, tier string, hit bool)
	// RecordSet records a write attempt.
	RecordSet(ctx context.Context, ok bool)
	// RecordDelete records a delete.
	RecordDelete(ctx context.Context)
	// RecordBackendError records a failed or timed-out remote call.
	RecordBackendError(ctx context.Context, op string)
	// RecordExpired records entries removed by a sweep.
	RecordExpired(ctx context.Context, n int)
}

type cacheMetrics struct {
	gets          metric.Int64Counter
	sets          metric.Int64Counter
	deletes       metric.Int64Counter
	backendErrors metric.Int64Counter
	expired       metric.Int64Counter
}

// NewCacheMetrics creates otel-backed cache metrics on meter.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	gets, err := meter.Int64Counter(
		"cache.gets",
		metric.WithDescription("Cache lookups by tier and result"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	sets, err := meter.Int64Counter(
		"cache.sets",
		metric.WithDescription("Cache writes"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	deletes, err := meter.Int64Counter(
		"cache.deletes",
		metric.WithDescription("Cache deletes"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	backendErrors, err := meter.Int64Counter(
		"cache.backend.errors",
		metric.WithDescription("Remote tier failures and timeouts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	expired, err := meter.Int64Counter(
		"cache.expired",
		metric.WithDescription("Local entries removed by expiry sweeps"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &cacheMetrics{
		gets:          gets,
		sets:          sets,
		deletes:       deletes,
		backendErrors: backendErrors,
		expired:       expired,
	}, nil
}

func (m *cacheMetrics) RecordGet(ctx context.Context, tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.gets.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("result", result),
	))
}

func (m *cacheMetrics) RecordSet(ctx context.Context, ok bool) {
	m.sets.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}

func (m *cacheMetrics) RecordDelete(ctx context.Context) {
	m.deletes.Add(ctx, 1)
}

func (m *cacheMetrics) RecordBackendError(ctx context.Context, op string) {
	m.backendErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *cacheMetrics) RecordExpired(ctx context.Context, n int) {
	m.expired.Add(ctx, int64(n))
}

type noopCacheMetrics struct{}

// NopCacheMetrics returns CacheMetrics that record nothing.
func NopCacheMetrics() CacheMetrics {
	return noopCacheMetrics{}
}

func (noopCacheMetrics) RecordGet(context.Context, string, bool)    {}
func (noopCacheMetrics) RecordSet(context.Context, bool)            {}
func (noopCacheMetrics) RecordDelete(context.Context)               {}
func (noopCacheMetrics) RecordBackendError(context.Context, string) {}
func (noopCacheMetrics) RecordExpired(context.Context, int)         {}

// Metrics records monitored function executions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records one call with its duration, memory delta in
	// bytes and error status.
	RecordExecution(ctx context.Context, op Operation, duration time.Duration, memDelta int64, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	memoryHist   metric.Int64Histogram
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"monitor.calls",
		metric.WithDescription("Total number of monitored calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"monitor.errors",
		metric.WithDescription("Total number of monitored calls that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"monitor.duration_ms",
		metric.WithDescription("Monitored call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	memoryHist, err := meter.Int64Histogram(
		"monitor.memory_delta",
		metric.WithDescription("Memory growth across a monitored call"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		memoryHist:   memoryHist,
	}, nil
}

func (m *metricsImpl) RecordExecution(ctx context.Context, op Operation, duration time.Duration, memDelta int64, err error) {
	opt := metric.WithAttributes(op.labels()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
	m.memoryHist.Record(ctx, memDelta, opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordExecution(context.Context, Operation, time.Duration, int64, error) {}
