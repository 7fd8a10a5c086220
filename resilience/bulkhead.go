package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is the bulkhead size used when none is configured.
const DefaultMaxConcurrent = 10

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of calls allowed in flight at once.
	MaxConcurrent int

	// MaxWait is how long a call may queue for a slot. Zero rejects at once.
	MaxWait time.Duration
}

// Bulkhead caps concurrent calls into a shared dependency so a slow remote
// tier cannot tie up every request goroutine.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted

	active   atomic.Int64
	rejected atomic.Int64
}

// NewBulkhead creates a bulkhead with config.MaxConcurrent slots.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}
}

// Acquire takes a slot, queueing up to MaxWait. It returns ErrBulkheadFull
// when none frees up in time and ctx.Err() when ctx ends first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.sem.TryAcquire(1) {
		b.active.Add(1)
		return nil
	}
	if b.config.MaxWait <= 0 {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
	defer cancel()

	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			b.rejected.Add(1)
			return ErrBulkheadFull
		}
		return err
	}
	b.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire. Calling it without a matching
// Acquire is a no-op.
func (b *Bulkhead) Release() {
	for {
		n := b.active.Load()
		if n <= 0 {
			return
		}
		if b.active.CompareAndSwap(n, n-1) {
			b.sem.Release(1)
			return
		}
	}
}

// Execute runs op while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

// Capacity returns the number of slots.
func (b *Bulkhead) Capacity() int { return b.config.MaxConcurrent }

// Active returns the number of slots in use.
func (b *Bulkhead) Active() int { return int(b.active.Load()) }

// Rejected returns how many acquisitions failed with ErrBulkheadFull.
func (b *Bulkhead) Rejected() int64 { return b.rejected.Load() }
