package resilience

import "errors"

// ErrCircuitOpen is returned without calling the dependency while the
// breaker is open.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// ErrMaxRetriesExceeded wraps the last attempt's error once retries run out.
var ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

// ErrBulkheadFull is returned when no bulkhead slot frees up in time.
var ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

// ErrTimeout is returned when a guarded call outlives its deadline.
var ErrTimeout = errors.New("resilience: operation timed out")

// ErrRateLimited is returned when no rate limiter token is available in time.
var ErrRateLimited = errors.New("resilience: rate limit exceeded")
