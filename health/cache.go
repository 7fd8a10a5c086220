package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/tieredcache/cache"
)

// BackendPinger is the part of cache.Engine that BackendChecker needs.
type BackendPinger interface {
	HasBackend() bool
	PingBackend(ctx context.Context) error
}

// BackendChecker reports the reachability of the engine's remote tier. An
// unreachable remote tier is degraded, not unhealthy: the engine keeps
// serving from the local tier.
type BackendChecker struct {
	engine BackendPinger
}

// NewBackendChecker creates a checker for engine's remote tier.
func NewBackendChecker(engine BackendPinger) *BackendChecker {
	return &BackendChecker{engine: engine}
}

// Name returns the name of this checker.
func (c *BackendChecker) Name() string {
	return "backend"
}

// Check pings the remote tier.
func (c *BackendChecker) Check(ctx context.Context) Result {
	if !c.engine.HasBackend() {
		return Healthy("no remote tier configured").WithDetails(map[string]any{"mode": "local"})
	}
	if err := c.engine.PingBackend(ctx); err != nil {
		r := Degraded("remote tier unreachable, serving from local tier")
		r.Error = err
		return r.WithDetails(map[string]any{"mode": "local"})
	}
	return Healthy("remote tier reachable").WithDetails(map[string]any{"mode": "tiered"})
}

// StatsSource is the part of cache.Engine that HitRateChecker needs.
type StatsSource interface {
	Stats() cache.Stats
}

// HitRateConfig configures HitRateChecker.
type HitRateConfig struct {
	// MinRate is the hit rate below which the cache is reported degraded.
	// Default: 0.5
	MinRate float64

	// MinRequests is the number of lookups required before the rate is
	// judged. Default: 100
	MinRequests int64
}

// HitRateChecker reports a cache whose hit rate has fallen below a floor.
// It never reports unhealthy; a cold cache is slow, not broken.
type HitRateChecker struct {
	source StatsSource
	config HitRateConfig
}

// NewHitRateChecker creates a hit rate checker.
func NewHitRateChecker(source StatsSource, config HitRateConfig) *HitRateChecker {
	if config.MinRate <= 0 || config.MinRate > 1 {
		config.MinRate = 0.5
	}
	if config.MinRequests <= 0 {
		config.MinRequests = 100
	}
	return &HitRateChecker{source: source, config: config}
}

// Name returns the name of this checker.
func (c *HitRateChecker) Name() string {
	return "hit_rate"
}

// Check compares the current hit rate with the floor.
func (c *HitRateChecker) Check(ctx context.Context) Result {
	st := c.source.Stats()
	details := map[string]any{
		"hits":           st.Hits,
		"misses":         st.Misses,
		"hit_rate":       st.HitRate,
		"total_requests": st.TotalRequests,
		"local_entries":  st.LocalEntries,
	}

	if st.TotalRequests < c.config.MinRequests {
		return Healthy("warming up").WithDetails(details)
	}
	if st.HitRate < c.config.MinRate {
		return Degraded(fmt.Sprintf("hit rate %.1f%% below %.1f%%", st.HitRate*100, c.config.MinRate*100)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("hit rate %.1f%%", st.HitRate*100)).WithDetails(details)
}

var (
	_ BackendPinger = (*cache.Engine)(nil)
	_ StatsSource   = (*cache.Engine)(nil)
)
