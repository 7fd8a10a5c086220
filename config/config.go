// Package config loads the tieredcache YAML configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/tieredcache/auth"
	"github.com/jonwraymond/tieredcache/cache"
	"github.com/jonwraymond/tieredcache/observe"
	"github.com/jonwraymond/tieredcache/resilience"
	"github.com/jonwraymond/tieredcache/secret"
)

// EnvPath names the environment variable consulted when Load gets no path.
const EnvPath = "TIEREDCACHE_CONFIG"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the root of the configuration file.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Redis   RedisConfig   `yaml:"redis"`
	Circuit CircuitConfig `yaml:"circuit"`
	Observe ObserveConfig `yaml:"observe"`
	Server  ServerConfig  `yaml:"server"`
	Secrets SecretsConfig `yaml:"secrets"`
}

// CacheConfig configures the engine and its reaper.
type CacheConfig struct {
	DefaultTTL     time.Duration `yaml:"default_ttl"`
	MaxTTL         time.Duration `yaml:"max_ttl"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	Backfill       bool          `yaml:"backfill"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

// RedisConfig configures the remote tier.
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	// MaxConcurrent caps in-flight Redis calls per process. Zero means
	// no cap.
	MaxConcurrent int `yaml:"max_concurrent"`
	// MaxWait bounds how long a call waits for a free slot.
	MaxWait time.Duration `yaml:"max_wait"`
}

// CircuitConfig configures the breaker around remote calls.
type CircuitConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// ObserveConfig configures logging, metrics and tracing.
type ObserveConfig struct {
	ServiceName     string `yaml:"service_name"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	MetricsExporter string `yaml:"metrics_exporter"`
	TracingExporter string `yaml:"tracing_exporter"`
}

// ServerConfig configures the HTTP listener of the serve command.
type ServerConfig struct {
	Addr  string      `yaml:"addr"`
	Admin AdminConfig `yaml:"admin"`
}

// AdminConfig configures the token-protected admin endpoints. They are
// disabled while TokenSecret is empty.
type AdminConfig struct {
	TokenSecret string `yaml:"token_secret"`
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	Role        string `yaml:"role"`
	// RateLimit is admin requests per second across all callers; Burst is
	// how many may arrive at once.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// MinTokenSecretLength is the shortest accepted HMAC secret.
const MinTokenSecretLength = 32

// SecretsConfig configures secret resolution.
type SecretsConfig struct {
	// FileDir is the base directory for secretref:file references.
	FileDir string `yaml:"file_dir"`
	// Strict rejects references that resolve to empty values.
	Strict bool `yaml:"strict"`
}

// Default returns a configuration that runs a local-only cache.
func Default() Config {
	p := cache.DefaultPolicy()
	return Config{
		Cache: CacheConfig{
			DefaultTTL:     p.DefaultTTL,
			MaxTTL:         p.MaxTTL,
			BackendTimeout: p.BackendTimeout,
			SweepInterval:  cache.DefaultSweepInterval,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Circuit: CircuitConfig{
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		},
		Observe: ObserveConfig{
			ServiceName:     "tieredcache",
			LogLevel:        "info",
			LogFormat:       "zap",
			MetricsExporter: "prometheus",
			TracingExporter: "none",
		},
		Server: ServerConfig{
			Addr: ":8080",
			Admin: AdminConfig{
				Issuer:    auth.DefaultIssuer,
				Audience:  auth.DefaultAudience,
				Role:      auth.DefaultAdminRole,
				RateLimit: 5,
				Burst:     10,
			},
		},
	}
}

// Load reads the YAML file at path over Default(), resolves secrets and
// validates the result. An empty path falls back to $TIEREDCACHE_CONFIG; if
// that is unset too, the defaults are returned.
func Load(ctx context.Context, path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.resolveSecrets(ctx); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolveSecrets(ctx context.Context) error {
	resolver := secret.NewResolver(c.Secrets.Strict,
		secret.NewEnvProvider(),
		secret.NewFileProvider(c.Secrets.FileDir),
	)
	defer resolver.Close()

	fields := []struct {
		name string
		ptr  *string
	}{
		{"redis.addr", &c.Redis.Addr},
		{"redis.password", &c.Redis.Password},
		{"redis.key_prefix", &c.Redis.KeyPrefix},
		{"server.addr", &c.Server.Addr},
		{"server.admin.token_secret", &c.Server.Admin.TokenSecret},
	}
	for _, f := range fields {
		v, err := resolver.ResolveValue(ctx, *f.ptr)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", f.name, err)
		}
		*f.ptr = v
	}
	return nil
}

// Validate reports the first problem found, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"cache.default_ttl", c.Cache.DefaultTTL},
		{"cache.max_ttl", c.Cache.MaxTTL},
		{"cache.backend_timeout", c.Cache.BackendTimeout},
		{"cache.sweep_interval", c.Cache.SweepInterval},
		{"circuit.reset_timeout", c.Circuit.ResetTimeout},
	}
	for _, d := range durations {
		if d.d < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidConfig, d.name, d.d)
		}
	}

	if c.Cache.MaxTTL > 0 && c.Cache.DefaultTTL > c.Cache.MaxTTL {
		return fmt.Errorf("%w: cache.default_ttl %s exceeds cache.max_ttl %s", ErrInvalidConfig, c.Cache.DefaultTTL, c.Cache.MaxTTL)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required when redis is enabled", ErrInvalidConfig)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("%w: redis.db must not be negative", ErrInvalidConfig)
	}
	if c.Redis.MaxConcurrent < 0 || c.Redis.MaxWait < 0 {
		return fmt.Errorf("%w: redis.max_concurrent and redis.max_wait must not be negative", ErrInvalidConfig)
	}
	if c.Circuit.MaxFailures < 0 {
		return fmt.Errorf("%w: circuit.max_failures must not be negative", ErrInvalidConfig)
	}
	if n := len(c.Server.Admin.TokenSecret); n > 0 && n < MinTokenSecretLength {
		return fmt.Errorf("%w: server.admin.token_secret must be at least %d bytes", ErrInvalidConfig, MinTokenSecretLength)
	}
	if c.Server.Admin.RateLimit < 0 || c.Server.Admin.Burst < 0 {
		return fmt.Errorf("%w: server.admin.rate_limit and server.admin.burst must not be negative", ErrInvalidConfig)
	}
	if c.AdminEnabled() && c.Server.Admin.Role == "" {
		return fmt.Errorf("%w: server.admin.role is required when admin endpoints are enabled", ErrInvalidConfig)
	}

	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Policy converts the cache section to an engine policy.
func (c *Config) Policy() cache.Policy {
	return cache.Policy{
		DefaultTTL:     c.Cache.DefaultTTL,
		MaxTTL:         c.Cache.MaxTTL,
		BackendTimeout: c.Cache.BackendTimeout,
	}
}

// CircuitBreakerConfig converts the circuit section. Zero values fall back to
// the breaker's defaults.
func (c *Config) CircuitBreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		MaxFailures:  c.Circuit.MaxFailures,
		ResetTimeout: c.Circuit.ResetTimeout,
	}
}

// BulkheadConfig converts the redis concurrency cap. ok is false when no
// cap is configured.
func (c *Config) BulkheadConfig() (cfg resilience.BulkheadConfig, ok bool) {
	if c.Redis.MaxConcurrent == 0 {
		return resilience.BulkheadConfig{}, false
	}
	return resilience.BulkheadConfig{
		MaxConcurrent: c.Redis.MaxConcurrent,
		MaxWait:       c.Redis.MaxWait,
	}, true
}

// AdminRateLimit converts the admin request budget.
func (c *Config) AdminRateLimit() resilience.RateLimiterConfig {
	return resilience.RateLimiterConfig{
		Rate:  c.Server.Admin.RateLimit,
		Burst: c.Server.Admin.Burst,
	}
}

// AdminEnabled reports whether the admin endpoints should be served.
func (c *Config) AdminEnabled() bool {
	return c.Server.Admin.TokenSecret != ""
}

// JWTConfig converts the admin section. Empty fields fall back to the auth
// package defaults.
func (c *Config) JWTConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:   c.Server.Admin.Issuer,
		Audience: c.Server.Admin.Audience,
	}
}

// ObserveConfig converts the observe section.
func (c *Config) ObserveConfig() observe.Config {
	tracing := c.Observe.TracingExporter != "" && c.Observe.TracingExporter != "none"
	metrics := c.Observe.MetricsExporter != "" && c.Observe.MetricsExporter != "none"
	return observe.Config{
		ServiceName: c.Observe.ServiceName,
		Tracing: observe.TracingConfig{
			Enabled:   tracing,
			Exporter:  c.Observe.TracingExporter,
			SamplePct: 1.0,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  metrics,
			Exporter: c.Observe.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Observe.LogLevel,
			Format:  c.Observe.LogFormat,
		},
	}
}
