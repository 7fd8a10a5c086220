package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/tieredcache/observe"
)

// DefaultNamespace is the key namespace used by Memoize unless overridden.
const DefaultNamespace = "memo"

// Func is a computation that can be memoized. Positional arguments keep call
// order; named arguments are keyed independently of map order.
type Func[R any] func(ctx context.Context, args []any, kwargs map[string]any) (R, error)

type memoConfig struct {
	ttl          *time.Duration
	keyPrefix    string
	namespace    string
	keyer        Keyer
	singleFlight bool
}

// MemoizeOption configures Memoize.
type MemoizeOption func(*memoConfig)

// WithTTL sets the TTL for memoized results. Without it the engine's
// default TTL applies.
func WithTTL(ttl time.Duration) MemoizeOption {
	return func(c *memoConfig) {
		c.ttl = &ttl
	}
}

// WithKeyPrefix prepends prefix to every derived key.
func WithKeyPrefix(prefix string) MemoizeOption {
	return func(c *memoConfig) {
		c.keyPrefix = prefix
	}
}

// WithNamespace sets the namespace segment of derived keys.
func WithNamespace(ns string) MemoizeOption {
	return func(c *memoConfig) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithKeyer replaces the DefaultKeyer.
func WithKeyer(k Keyer) MemoizeOption {
	return func(c *memoConfig) {
		if k != nil {
			c.keyer = k
		}
	}
}

// WithSingleFlight collapses concurrent misses for the same key into one
// execution of the computation. The shared execution runs with the context
// of the first caller.
func WithSingleFlight() MemoizeOption {
	return func(c *memoConfig) {
		c.singleFlight = true
	}
}

// key builds <keyPrefix>:<namespace>:<name>:<digest>, omitting an empty prefix.
func (c *memoConfig) key(name string, args []any, kwargs map[string]any) (string, error) {
	key, err := c.keyer.Key(c.namespace, name, args, kwargs)
	if err != nil {
		return "", err
	}
	if c.keyPrefix != "" {
		key = c.keyPrefix + ":" + key
	}
	return key, nil
}

// Memoize wraps fn so results are served from e when present.
//
// On a miss fn runs; its error is returned unchanged and nothing is stored.
// A successful result is stored even when it is a zero value, and a stored
// zero value is served as a hit. Arguments that cannot be keyed make the
// call run uncached. name identifies the computation within its namespace.
func Memoize[R any](e *Engine, name string, fn Func[R], opts ...MemoizeOption) Func[R] {
	cfg := &memoConfig{
		namespace: DefaultNamespace,
		keyer:     NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var group *singleflight.Group
	if cfg.singleFlight {
		group = &singleflight.Group{}
	}

	return func(ctx context.Context, args []any, kwargs map[string]any) (R, error) {
		if e == nil {
			return fn(ctx, args, kwargs)
		}

		key, err := cfg.key(name, args, kwargs)
		if err != nil {
			e.logger.Debug(ctx, "memoize: executing uncached",
				observe.F("name", name),
				observe.F("error", err),
			)
			return fn(ctx, args, kwargs)
		}

		var cached R
		if e.Get(ctx, key, &cached) {
			return cached, nil
		}

		if group == nil {
			return computeAndStore(ctx, e, cfg, key, fn, args, kwargs)
		}

		v, err, _ := group.Do(key, func() (any, error) {
			return computeAndStore(ctx, e, cfg, key, fn, args, kwargs)
		})
		if err != nil {
			var zero R
			return zero, err
		}
		result, _ := v.(R)
		return result, nil
	}
}

func computeAndStore[R any](ctx context.Context, e *Engine, cfg *memoConfig, key string, fn Func[R], args []any, kwargs map[string]any) (R, error) {
	result, err := fn(ctx, args, kwargs)
	if err != nil {
		return result, err
	}

	ttl := e.policy.EffectiveTTL(cfg.ttl)
	e.SetWithTTL(ctx, key, result, ttl)
	return result, nil
}

// Memoize1 is Memoize for single-argument computations.
func Memoize1[A, R any](e *Engine, name string, fn func(ctx context.Context, arg A) (R, error), opts ...MemoizeOption) func(ctx context.Context, arg A) (R, error) {
	wrapped := Memoize(e, name, func(ctx context.Context, args []any, _ map[string]any) (R, error) {
		arg, _ := args[0].(A)
		return fn(ctx, arg)
	}, opts...)

	return func(ctx context.Context, arg A) (R, error) {
		return wrapped(ctx, []any{arg}, nil)
	}
}
