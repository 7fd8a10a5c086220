// Package resilience bounds calls to slow or failing dependencies.
//
// The cache engine routes every remote-tier call through a Guard so a slow
// or unreachable backend degrades to local-only behaviour instead of
// stalling callers.
//
// # Patterns
//
//   - Timeout: fails a call that does not finish within a limit.
//   - Circuit Breaker: stops calling a dependency after repeated failures
//     and probes it again after a cool-down.
//   - Bulkhead: caps the number of concurrent calls.
//   - Retry: re-runs failed calls with backoff. Used for startup checks, not
//     on the cache hot path.
//   - Rate Limiter: a token bucket. Throttles the admin endpoints.
//
// # Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//
//	guard := resilience.NewGuard(
//	    resilience.WithTimeout(250*time.Millisecond),
//	    resilience.WithCircuitBreaker(cb),
//	)
//
//	err := guard.Do(ctx, func(ctx context.Context) error {
//	    return client.Ping(ctx).Err()
//	})
package resilience
