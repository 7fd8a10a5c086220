package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls flow normally.
	StateClosed State = iota
	// StateOpen means calls are rejected without reaching the dependency.
	StateOpen
	// StateHalfOpen means a limited number of probe calls are let through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of probes allowed while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called after the state changes, outside the lock.
	OnStateChange func(from, to State)

	// IsFailure decides whether an error counts against the dependency.
	// Default: all non-nil errors.
	IsFailure func(err error) bool

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

// CircuitBreaker stops calling a dependency after repeated failures.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probes      int
	transitions []transition
}

type transition struct{ from, to State }

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := op(ctx)
	cb.after(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	state := cb.refreshLocked()
	pending := cb.drainLocked()
	cb.mu.Unlock()

	cb.notify(pending)
	return state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.moveLocked(StateClosed)
	cb.failures = 0
	pending := cb.drainLocked()
	cb.mu.Unlock()

	cb.notify(pending)
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	state := cb.refreshLocked()

	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitOpen
		} else {
			cb.probes++
		}
	}
	pending := cb.drainLocked()
	cb.mu.Unlock()

	cb.notify(pending)
	return err
}

func (cb *CircuitBreaker) after(err error) {
	failed := cb.config.IsFailure(err)

	cb.mu.Lock()
	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			break
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.openedAt = cb.config.Now()
			cb.moveLocked(StateOpen)
		}
	case StateHalfOpen:
		if failed {
			cb.openedAt = cb.config.Now()
			cb.moveLocked(StateOpen)
		} else {
			cb.failures = 0
			cb.moveLocked(StateClosed)
		}
	}
	pending := cb.drainLocked()
	cb.mu.Unlock()

	cb.notify(pending)
}

// refreshLocked moves an open circuit to half-open once ResetTimeout passed.
func (cb *CircuitBreaker) refreshLocked() State {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.moveLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateHalfOpen {
		cb.probes = 0
	}
	cb.transitions = append(cb.transitions, transition{from: from, to: to})
}

func (cb *CircuitBreaker) drainLocked() []transition {
	if len(cb.transitions) == 0 {
		return nil
	}
	pending := cb.transitions
	cb.transitions = nil
	return pending
}

func (cb *CircuitBreaker) notify(pending []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, t := range pending {
		cb.config.OnStateChange(t.from, t.to)
	}
}
