package cache

import "time"

// Policy configures TTL handling for an Engine.
type Policy struct {
	// DefaultTTL is the TTL used by Engine.Set and by Memoize when no TTL
	// option is given.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Positive TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// BackendTimeout bounds each remote call. If zero, DefaultBackendTimeout
	// is used.
	BackendTimeout time.Duration
}

// DefaultBackendTimeout bounds remote calls when Policy.BackendTimeout is unset.
const DefaultBackendTimeout = 250 * time.Millisecond

// DefaultPolicy returns the default policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour, BackendTimeout: 250ms
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL:     5 * time.Minute,
		MaxTTL:         1 * time.Hour,
		BackendTimeout: DefaultBackendTimeout,
	}
}

// ClampTTL applies MaxTTL to a positive ttl. Zero and negative TTLs are
// returned unchanged: they mean the entry expires immediately.
func (p Policy) ClampTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}

// EffectiveTTL returns the TTL to use for an optional override.
// A nil override selects DefaultTTL.
func (p Policy) EffectiveTTL(override *time.Duration) time.Duration {
	if override == nil {
		return p.ClampTTL(p.DefaultTTL)
	}
	return p.ClampTTL(*override)
}

func (p Policy) backendTimeout() time.Duration {
	if p.BackendTimeout <= 0 {
		return DefaultBackendTimeout
	}
	return p.BackendTimeout
}
