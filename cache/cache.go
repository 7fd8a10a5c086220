package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilEngine          = errors.New("cache: engine is nil")
	ErrInvalidKey         = errors.New("cache: key is invalid")
	ErrKeyTooLong         = errors.New("cache: key exceeds max length")
	ErrUnkeyable          = errors.New("cache: arguments cannot be keyed deterministically")
	ErrSerialization      = errors.New("cache: value cannot be serialized")
	ErrBackendUnavailable = errors.New("cache: remote backend unavailable")
)

// Backend is the remote tier consumed by an Engine.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines; the engine bounds
//   every call with a timeout.
// - Errors: any error means "remote unavailable for this call". Get reports a
//   missing key as (nil, false, nil), not as an error.
// - Ownership: the backend is shared; the engine never assumes exclusive access.
type Backend interface {
	// Get returns the stored bytes for key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetWithTTL stores value under key, expiring after ttl.
	SetWithTTL(ctx context.Context, key string, ttl time.Duration, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Flush removes every key the backend holds.
	Flush(ctx context.Context) error
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
