package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Rate limiter defaults.
const (
	DefaultRate  = 100.0
	DefaultBurst = 10
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is tokens added per second.
	Rate float64
	// Burst is the bucket size.
	Burst int
	// MaxWait bounds Wait. Zero makes Wait fail when no token is ready.
	MaxWait time.Duration
}

// RateLimiter is a token bucket shared by every caller of one operation.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter fills in defaults and returns a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = DefaultRate
	}
	if config.Burst <= 0 {
		config.Burst = DefaultBurst
	}
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow takes a token if one is available now.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks for a token for up to MaxWait. It returns ErrRateLimited when
// none would arrive in time and ctx.Err() when ctx ends first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	res := r.limiter.Reserve()
	delay := res.Delay()
	if delay == 0 {
		return nil
	}
	if delay > r.config.MaxWait {
		res.Cancel()
		return ErrRateLimited
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	}
}

// RetryAfter estimates how long until the next token is available.
func (r *RateLimiter) RetryAfter() time.Duration {
	res := r.limiter.Reserve()
	defer res.Cancel()
	return res.Delay()
}

// Execute runs op once Wait admits it.
func (r *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := r.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}
