package health

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
)

// Memory thresholds used when none are configured.
const (
	DefaultMemoryWarning  = 0.8
	DefaultMemoryCritical = 0.95
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold and CriticalThreshold are shares of the budget in
	// (0, 1) that report degraded and unhealthy.
	WarningThreshold  float64
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes. Zero uses GOMEMLIMIT when it is
	// set, otherwise the memory obtained from the OS.
	MaxAlloc uint64

	// ReadStats replaces runtime.ReadMemStats. Intended for tests.
	ReadStats func(*runtime.MemStats)
}

// MemoryChecker checks heap usage against a budget. The local tier lives on
// the heap and has no size bound, so this is the check that notices it
// growing without limit.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker fills in default thresholds. A critical threshold below
// the warning one is raised just above it.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if !inUnitInterval(config.WarningThreshold) {
		config.WarningThreshold = DefaultMemoryWarning
	}
	if !inUnitInterval(config.CriticalThreshold) {
		config.CriticalThreshold = DefaultMemoryCritical
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	if config.ReadStats == nil {
		config.ReadStats = runtime.ReadMemStats
	}
	return &MemoryChecker{config: config}
}

func inUnitInterval(v float64) bool { return v > 0 && v < 1 }

func (m *MemoryChecker) Name() string { return "memory" }

func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	m.config.ReadStats(&stats)

	budget, source := m.budget(&stats)
	if budget == 0 {
		return Healthy("memory stats unavailable")
	}

	usage := float64(stats.HeapAlloc) / float64(budget)
	pct := usage * 100
	r := Healthy(fmt.Sprintf("memory usage normal: %.1f%%", pct))
	switch {
	case usage >= m.config.CriticalThreshold:
		r = Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", pct), ErrCheckFailed)
	case usage >= m.config.WarningThreshold:
		r = Degraded(fmt.Sprintf("memory usage high: %.1f%%", pct))
	}
	return r.WithDetails(map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"heap_objects":     stats.HeapObjects,
		"budget_bytes":     budget,
		"budget_source":    source,
		"usage_percent":    pct,
		"num_gc":           stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	})
}

// budget picks the configured budget, then GOMEMLIMIT, then Sys.
func (m *MemoryChecker) budget(stats *runtime.MemStats) (uint64, string) {
	if m.config.MaxAlloc > 0 {
		return m.config.MaxAlloc, "config"
	}
	// A negative argument reads the limit without changing it.
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		return uint64(limit), "gomemlimit"
	}
	return stats.Sys, "sys"
}
