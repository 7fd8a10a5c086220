package cache

import (
	"context"
	"time"
)

// DefaultSweepInterval is the Reaper interval when none is configured.
const DefaultSweepInterval = time.Minute

// ReaperConfig configures a Reaper.
type ReaperConfig struct {
	// Interval between sweeps in Run.
	// Default: 1 minute
	Interval time.Duration

	// OnSweep is called after every sweep with the number of removed entries.
	OnSweep func(removed int)
}

// Reaper purges expired local entries from an Engine, on demand or on a
// fixed interval. It holds no state besides its schedule.
type Reaper struct {
	engine *Engine
	config ReaperConfig
}

// NewReaper creates a Reaper for e.
func NewReaper(e *Engine, config ReaperConfig) (*Reaper, error) {
	if e == nil {
		return nil, ErrNilEngine
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweepInterval
	}
	return &Reaper{engine: e, config: config}, nil
}

// Sweep runs one cleanup pass and returns the number of removed entries.
func (r *Reaper) Sweep(ctx context.Context) int {
	removed := r.engine.CleanupExpired(ctx)
	if r.config.OnSweep != nil {
		r.config.OnSweep(removed)
	}
	return removed
}

// Run sweeps every Interval until ctx is done, then returns ctx.Err().
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Config returns the reaper configuration.
func (r *Reaper) Config() ReaperConfig {
	return r.config
}
