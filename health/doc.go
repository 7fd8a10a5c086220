// Package health reports whether a tieredcache process and its remote tier
// are fit to serve.
//
// A Checker reports a Status: Healthy, Degraded, or Unhealthy. The package
// ships checkers for the cache engine (BackendChecker, HitRateChecker) and
// for process memory (MemoryChecker). An Aggregator runs a set of checkers
// under a deadline and folds their results into one status.
//
// # Usage
//
//	agg := health.NewAggregator()
//	agg.Register("backend", health.NewBackendChecker(engine))
//	agg.Register("hit_rate", health.NewHitRateChecker(engine, health.HitRateConfig{MinRate: 0.5}))
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// A degraded remote tier never makes the process unready on its own: the
// engine keeps serving from the local tier, so BackendChecker reports
// Degraded rather than Unhealthy when the remote tier is unreachable.
package health
