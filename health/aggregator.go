package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/tieredcache/observe"
)

// DefaultCheckTimeout bounds a full CheckAll run.
const DefaultCheckTimeout = 10 * time.Second

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxParallel caps how many checks CheckAll runs at once. Zero runs
	// them all concurrently; one runs them in registration order.
	MaxParallel int

	// Logger receives a message whenever the overall status changes.
	// Default: no-op
	Logger observe.Logger
}

// Aggregator combines multiple health checkers into a single composite check.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string

	lastMu sync.Mutex
	last   Status
	seen   bool
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCheckTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]Checker),
	}
}

// Register adds a health checker under name, replacing any previous one.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// Unregister removes a health checker.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.checkers, name)
	a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered check under one shared deadline and
// returns the results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	names := slices.Clone(a.order)
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	results := make(map[string]Result, len(names))
	if len(names) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	// Each goroutine writes only its own slot.
	out := make([]Result, len(checkers))
	var g errgroup.Group
	if a.config.MaxParallel > 0 {
		g.SetLimit(a.config.MaxParallel)
	}
	for i, checker := range checkers {
		g.Go(func() error {
			out[i] = runCheck(ctx, checker)
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range names {
		results[name] = out[i]
	}
	a.observe(ctx, results)
	return results
}

// observe logs transitions of the overall status.
func (a *Aggregator) observe(ctx context.Context, results map[string]Result) {
	status := OverallStatus(results)

	a.lastMu.Lock()
	changed := !a.seen || a.last != status
	prev := a.last
	a.last, a.seen = status, true
	a.lastMu.Unlock()

	if !changed {
		return
	}

	var failing []string
	for name, r := range results {
		if r.Status != StatusHealthy {
			failing = append(failing, name)
		}
	}
	slices.Sort(failing)

	fields := []observe.Field{
		observe.F("status", status.String()),
		observe.F("previous", prev.String()),
		observe.F("failing", failing),
	}
	if status == StatusHealthy {
		a.config.Logger.Info(ctx, "health status changed", fields...)
	} else {
		a.config.Logger.Warn(ctx, "health status changed", fields...)
	}
}

// OverallStatus folds results into the worst status among them. An empty
// set is healthy.
func OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, result := range results {
		overall = overall.Worse(result.Status)
	}
	return overall
}

func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}
