package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Retry defaults.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultMaxDelay     = 5 * time.Second
	DefaultMultiplier   = 2.0
)

// RetryConfig configures exponential backoff. Zero fields take the defaults
// above.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// Jitter adds up to a quarter of the delay at random.
	Jitter bool

	// RetryIf reports whether err is transient. Nil retries every error.
	RetryIf func(err error) bool

	// OnRetry runs before each wait, with the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs a failed call with exponential backoff. The engine never
// retries on the request path; Retry serves startup probes such as waiting
// for Redis.
type Retry struct {
	config RetryConfig
}

// NewRetry fills in defaults and returns a Retry.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultInitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultMaxDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = DefaultMultiplier
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute calls op until it succeeds, returns a permanent error, runs out of
// attempts or ctx ends. Running out returns an error wrapping both
// ErrMaxRetriesExceeded and op's last error.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	attempt := 0
	for {
		attempt++
		err := op(ctx)
		switch {
		case err == nil:
			return nil
		case !r.config.RetryIf(err):
			return err
		case attempt >= r.config.MaxAttempts:
			return fmt.Errorf("%w (%d attempts): %w", ErrMaxRetriesExceeded, attempt, err)
		}

		delay := r.Delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Delay returns the wait after failed attempt n (1-based), capped at
// MaxDelay before jitter is added.
func (r *Retry) Delay(n int) time.Duration {
	delay := float64(r.config.InitialDelay)
	limit := float64(r.config.MaxDelay)
	for i := 1; i < n && delay < limit; i++ {
		delay *= r.config.Multiplier
	}
	d := time.Duration(min(delay, limit))

	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
