// Package redisbackend implements the cache remote tier on Redis.
//
// Values are stored as plain strings with native Redis expiry, so no
// background work is needed on the remote side. The caller owns the client
// lifecycle.
package redisbackend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/tieredcache/cache"
)

// scanBatch is the COUNT hint used when flushing a prefix.
const scanBatch = 500

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix namespaces every key as "<prefix>:<key>". With a prefix, Flush
// removes only the prefixed keys instead of the whole database.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// Backend is a cache.Backend over a Redis client.
type Backend struct {
	client redis.UniversalClient
	prefix string
}

// New wraps client.
func New(client redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{client: client}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Options describes a connection for Open.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Open creates a client for opts and wraps it. Close releases the client.
func Open(opts Options) *Backend {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return New(client, WithPrefix(opts.Prefix))
}

func (b *Backend) key(k string) string {
	if b.prefix == "" {
		return k
	}
	return b.prefix + ":" + k
}

// Get returns the stored bytes. A missing key is (nil, false, nil).
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

// SetWithTTL stores value with a Redis expiry. Redis rejects non-positive
// expiries on SET EX, so those delete the key instead.
func (b *Backend) SetWithTTL(ctx context.Context, key string, ttl time.Duration, value []byte) error {
	if ttl <= 0 {
		return b.Delete(ctx, key)
	}
	if err := b.client.Set(ctx, b.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key succeeds.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Flush removes every key under the prefix, or the whole database when no
// prefix is set.
func (b *Backend) Flush(ctx context.Context) error {
	if b.prefix == "" {
		if err := b.client.FlushDB(ctx).Err(); err != nil {
			return fmt.Errorf("redis flushdb: %w", err)
		}
		return nil
	}

	iter := b.client.Scan(ctx, 0, b.prefix+":*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := b.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := b.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

var (
	_ cache.Backend = (*Backend)(nil)
	_ cache.Pinger  = (*Backend)(nil)
)
