package cache

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/jonwraymond/tieredcache/observe"
	"github.com/jonwraymond/tieredcache/resilience"
)

// Engine orchestrates the local tier, the optional remote tier and the
// statistics behind a single get/set/delete surface.
//
// Contract:
// - Concurrency: safe for concurrent use; construct one per scope and share it.
// - Errors: remote failures and timeouts degrade the call to local-only and
//   are never returned; Get/Set/Delete report outcomes as booleans.
// - Ownership: the engine owns its LocalStore; the Backend is shared.
type Engine struct {
	policy   Policy
	local    *LocalStore
	backend  Backend
	codec    Codec
	guard    *resilience.Guard
	logger   observe.Logger
	metrics  observe.CacheMetrics
	stats    statsTracker
	backfill bool
	now      Clock

	guardOpts []resilience.GuardOption
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackend attaches a remote tier.
func WithBackend(b Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithCodec replaces the JSON codec.
func WithCodec(c Codec) Option {
	return func(e *Engine) {
		if c != nil {
			e.codec = c
		}
	}
}

// WithLogger sets the logger used for degraded-path and maintenance messages.
func WithLogger(l observe.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m observe.CacheMetrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithBackendGuard adds resilience patterns around remote calls, such as a
// circuit breaker or a bulkhead. The per-call timeout from the policy is
// always applied innermost.
func WithBackendGuard(opts ...resilience.GuardOption) Option {
	return func(e *Engine) {
		e.guardOpts = append(e.guardOpts, opts...)
	}
}

// WithClock sets the clock for the local tier. Intended for tests.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.now = c
		}
	}
}

// WithBackfill makes a remote hit repopulate the local tier with the
// policy's default TTL. Off by default.
func WithBackfill(enabled bool) Option {
	return func(e *Engine) {
		e.backfill = enabled
	}
}

// New creates an Engine with the given policy.
func New(policy Policy, opts ...Option) *Engine {
	e := &Engine{
		policy:  policy,
		codec:   JSONCodec{},
		logger:  observe.NopLogger(),
		metrics: observe.NopCacheMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.local = NewLocalStore(e.now)
	guardOpts := append([]resilience.GuardOption{
		resilience.WithTimeout(policy.backendTimeout()),
	}, e.guardOpts...)
	e.guard = resilience.NewGuard(guardOpts...)
	e.guardOpts = nil

	return e
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Local exposes the local tier for inspection.
func (e *Engine) Local() *LocalStore {
	return e.local
}

// HasBackend reports whether a remote tier is configured.
func (e *Engine) HasBackend() bool {
	return e.backend != nil
}

// Get decodes the value stored under key into dst and reports whether a live
// value was found. The remote tier is consulted first when configured.
// A found value replaces *dst instead of merging into it; when decoding was
// attempted but nothing was found, *dst is left zeroed.
func (e *Engine) Get(ctx context.Context, key string, dst any) bool {
	decoded := false
	_, ok := e.lookup(ctx, key, func(data []byte) error {
		decoded = true
		resetValue(dst)
		return e.codec.Unmarshal(data, dst)
	})
	if !ok && decoded {
		resetValue(dst)
	}
	return ok
}

// resetValue zeroes what dst points to, so a payload rejected halfway
// through decoding leaves nothing behind.
func resetValue(dst any) {
	v := reflect.ValueOf(dst)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
}

// GetBytes returns the encoded value stored under key.
func (e *Engine) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	return e.lookup(ctx, key, nil)
}

func (e *Engine) lookup(ctx context.Context, key string, decode func([]byte) error) ([]byte, bool) {
	if err := ValidateKey(key); err != nil {
		e.logger.Debug(ctx, "cache get rejected", observe.F("key", key), observe.F("error", err))
		e.stats.miss()
		e.metrics.RecordGet(ctx, observe.TierLocal, false)
		return nil, false
	}

	if e.backend != nil {
		data, found, err := e.remoteGet(ctx, key)
		switch {
		case err != nil:
			e.backendFailed(ctx, "get", key, err)
		case found && decode != nil:
			if err := decode(data); err != nil {
				e.backendFailed(ctx, "get", key, err)
				break
			}
			return e.remoteHit(ctx, key, data), true
		case found:
			return e.remoteHit(ctx, key, data), true
		}
	}

	data, ok := e.local.Get(key)
	if ok && decode != nil {
		if err := decode(data); err != nil {
			e.logger.Warn(ctx, "cache entry undecodable", observe.F("key", key), observe.F("error", err))
			e.local.Delete(key)
			ok = false
		}
	}

	if ok {
		e.stats.hit()
	} else {
		e.stats.miss()
	}
	e.metrics.RecordGet(ctx, observe.TierLocal, ok)
	return data, ok
}

func (e *Engine) remoteHit(ctx context.Context, key string, data []byte) []byte {
	e.stats.hit()
	e.metrics.RecordGet(ctx, observe.TierRemote, true)
	if e.backfill {
		e.local.Set(key, slices.Clone(data), e.policy.ClampTTL(e.policy.DefaultTTL))
	}
	return data
}

// Set stores value under key with the policy's default TTL.
func (e *Engine) Set(ctx context.Context, key string, value any) bool {
	return e.SetWithTTL(ctx, key, value, e.policy.DefaultTTL)
}

// SetWithTTL encodes value and stores it in both tiers. A zero or negative
// ttl stores an already-expired local entry and removes the key remotely, so
// the next Get misses. It returns false only when the key is invalid or the
// value cannot be encoded; remote failures do not fail the call.
func (e *Engine) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if err := ValidateKey(key); err != nil {
		e.logger.Warn(ctx, "cache set rejected", observe.F("key", key), observe.F("error", err))
		e.metrics.RecordSet(ctx, false)
		return false
	}

	data, err := e.codec.Marshal(value)
	if err != nil {
		e.logger.Warn(ctx, "cache set failed", observe.F("key", key), observe.F("error", err))
		e.metrics.RecordSet(ctx, false)
		return false
	}

	ttl = e.policy.ClampTTL(ttl)

	if e.backend != nil {
		var err error
		if ttl > 0 {
			err = e.guard.Do(ctx, func(ctx context.Context) error {
				return e.backend.SetWithTTL(ctx, key, ttl, data)
			})
		} else {
			err = e.guard.Do(ctx, func(ctx context.Context) error {
				return e.backend.Delete(ctx, key)
			})
		}
		if err != nil {
			e.backendFailed(ctx, "set", key, err)
		}
	}

	e.local.Set(key, data, ttl)
	e.stats.set()
	e.metrics.RecordSet(ctx, true)
	return true
}

// Delete removes key from both tiers. Deleting a missing key succeeds.
func (e *Engine) Delete(ctx context.Context, key string) bool {
	if err := ValidateKey(key); err != nil {
		return false
	}

	if e.backend != nil {
		err := e.guard.Do(ctx, func(ctx context.Context) error {
			return e.backend.Delete(ctx, key)
		})
		if err != nil {
			e.backendFailed(ctx, "delete", key, err)
		}
	}

	e.local.Delete(key)
	e.stats.delete()
	e.metrics.RecordDelete(ctx)
	return true
}

// Clear empties the local tier and flushes the remote tier.
func (e *Engine) Clear(ctx context.Context) {
	e.local.Clear()

	if e.backend != nil {
		err := e.guard.Do(ctx, func(ctx context.Context) error {
			return e.backend.Flush(ctx)
		})
		if err != nil {
			e.backendFailed(ctx, "flush", "", err)
		}
	}

	e.logger.Info(ctx, "cache cleared")
}

// CleanupExpired sweeps expired entries from the local tier and returns how
// many were removed. Remote entries expire under the backend's own TTL.
func (e *Engine) CleanupExpired(ctx context.Context) int {
	removed := e.local.SweepExpired()
	if removed > 0 {
		e.logger.Info(ctx, "cleaned up expired cache entries", observe.F("removed", removed))
		e.metrics.RecordExpired(ctx, removed)
	}
	return removed
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot(e.local.Len())
}

// PingBackend checks that the remote tier is reachable. It returns nil when
// no remote tier is configured.
func (e *Engine) PingBackend(ctx context.Context) error {
	if e.backend == nil {
		return nil
	}
	err := e.guard.Do(ctx, func(ctx context.Context) error {
		if p, ok := e.backend.(Pinger); ok {
			return p.Ping(ctx)
		}
		_, _, err := e.backend.Get(ctx, "__tieredcache_ping__")
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// remoteGet calls the backend under the guard. Results are only read when
// the call returned in time.
func (e *Engine) remoteGet(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		data  []byte
		found bool
	}
	ch := make(chan result, 1)

	err := e.guard.Do(ctx, func(ctx context.Context) error {
		data, found, err := e.backend.Get(ctx, key)
		if err != nil {
			return err
		}
		// A retried attempt may finish after an earlier one already did.
		select {
		case ch <- result{data: data, found: found}:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	r := <-ch
	return r.data, r.found, nil
}

func (e *Engine) backendFailed(ctx context.Context, op, key string, err error) {
	e.logger.Warn(ctx, "remote tier unavailable, using local tier",
		observe.F("op", op),
		observe.F("key", key),
		observe.F("error", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)),
	)
	e.metrics.RecordBackendError(ctx, op)
}
