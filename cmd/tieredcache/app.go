package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/tieredcache/cache"
	"github.com/jonwraymond/tieredcache/cache/redisbackend"
	"github.com/jonwraymond/tieredcache/config"
	"github.com/jonwraymond/tieredcache/observe"
	"github.com/jonwraymond/tieredcache/resilience"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg     config.Config
	obs     observe.Observer
	logger  observe.Logger
	engine  *cache.Engine
	breaker *resilience.CircuitBreaker
	redis   *redisbackend.Backend

	// bulkhead is nil unless redis.max_concurrent is set.
	bulkhead *resilience.Bulkhead
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(ctx context.Context) (config.Config, error) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Observe.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// newApp builds the observer, the optional Redis tier and the engine.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a := &app{cfg: cfg, obs: obs, logger: obs.Logger()}

	metrics, err := observe.NewCacheMetrics(obs.Meter())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	opts := []cache.Option{
		cache.WithLogger(a.logger.With(observe.F("component", "cache"))),
		cache.WithMetrics(metrics),
		cache.WithBackfill(cfg.Cache.Backfill),
	}

	if cfg.Redis.Enabled {
		a.redis = redisbackend.Open(redisbackend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.KeyPrefix,
		})
		a.waitForRedis(ctx)

		breakerCfg := cfg.CircuitBreakerConfig()
		breakerCfg.OnStateChange = func(from, to resilience.State) {
			a.logger.Warn(context.Background(), "remote tier circuit changed",
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		}
		a.breaker = resilience.NewCircuitBreaker(breakerCfg)

		guard := []resilience.GuardOption{resilience.WithCircuitBreaker(a.breaker)}
		if bh, ok := cfg.BulkheadConfig(); ok {
			a.bulkhead = resilience.NewBulkhead(bh)
			guard = append(guard, resilience.WithBulkhead(a.bulkhead))
		}

		opts = append(opts,
			cache.WithBackend(a.redis),
			cache.WithBackendGuard(guard...),
		)
	}

	a.engine = cache.New(cfg.Policy(), opts...)
	a.logger.Info(ctx, "cache engine ready",
		observe.F("remote", cfg.Redis.Enabled),
		observe.F("default_ttl", cfg.Cache.DefaultTTL.String()),
		observe.F("max_ttl", cfg.Cache.MaxTTL.String()),
	)
	return a, nil
}

// waitForRedis pings Redis with backoff. An unreachable Redis is not fatal:
// the engine serves from the local tier until it comes back.
func (a *app) waitForRedis(ctx context.Context) {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Jitter:       true,
		RetryIf: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			a.logger.Warn(ctx, "redis not reachable, retrying",
				observe.F("attempt", attempt),
				observe.F("delay_ms", delay.Milliseconds()),
				observe.F("error", err),
			)
		},
	})

	err := retry.Execute(ctx, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, a.cfg.Policy().BackendTimeout+time.Second)
		defer cancel()
		return a.redis.Ping(pingCtx)
	})
	if err != nil {
		a.logger.Warn(ctx, "starting with local tier only", observe.F("addr", a.cfg.Redis.Addr), observe.F("error", err))
		return
	}
	a.logger.Info(ctx, "redis connected", observe.F("addr", a.cfg.Redis.Addr))
}

// close releases the Redis client and flushes telemetry.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := a.obs.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observe: %w", err))
	}
	return errors.Join(errs...)
}
