package resilience

import (
	"context"
	"time"
)

// Guard composes resilience patterns around calls to one dependency.
//
// Execution order, outermost first: bulkhead, circuit breaker, retry,
// timeout. Each attempt gets its own timeout; the circuit breaker sees one
// outcome per Do, after retries.
type Guard struct {
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// NewGuard creates a Guard. With no options Do calls op directly.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithTimeout bounds each attempt.
func WithTimeout(limit time.Duration) GuardOption {
	return func(g *Guard) {
		g.timeout = NewTimeout(limit)
	}
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) GuardOption {
	return func(g *Guard) {
		g.circuitBreaker = cb
	}
}

// WithBulkhead caps concurrent calls.
func WithBulkhead(b *Bulkhead) GuardOption {
	return func(g *Guard) {
		g.bulkhead = b
	}
}

// WithRetry retries failed attempts.
func WithRetry(r *Retry) GuardOption {
	return func(g *Guard) {
		g.retry = r
	}
}

// Do runs op through the configured patterns.
func (g *Guard) Do(ctx context.Context, op func(context.Context) error) error {
	call := op

	if g.timeout != nil {
		inner := call
		call = func(ctx context.Context) error {
			return g.timeout.Execute(ctx, inner)
		}
	}

	if g.retry != nil {
		inner := call
		call = func(ctx context.Context) error {
			return g.retry.Execute(ctx, inner)
		}
	}

	if g.circuitBreaker != nil {
		inner := call
		call = func(ctx context.Context) error {
			return g.circuitBreaker.Execute(ctx, inner)
		}
	}

	if g.bulkhead != nil {
		inner := call
		call = func(ctx context.Context) error {
			return g.bulkhead.Execute(ctx, inner)
		}
	}

	return call(ctx)
}

// CircuitBreaker returns the guard's breaker, or nil.
func (g *Guard) CircuitBreaker() *CircuitBreaker {
	return g.circuitBreaker
}
