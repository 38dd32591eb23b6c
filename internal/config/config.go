// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"time"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8084".
	Addr string `koanf:"addr"`

	// CacheBackend selects the recommendation cache: memory or redis.
	CacheBackend    string `koanf:"cache_backend"`
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`
	// CacheMaxEntries bounds the memory backend.
	CacheMaxEntries int `koanf:"cache_max_entries"`

	AnalyticsBaseURL string `koanf:"analytics_base_url"`
	ProgressBaseURL  string `koanf:"progress_base_url"`
	// UpstreamTimeoutMS bounds every upstream read.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`

	// Circuit breaker settings, applied per upstream service.
	BreakerMaxRequests    int     `koanf:"breaker_max_requests"`
	BreakerTimeoutSeconds int     `koanf:"breaker_timeout_seconds"`
	BreakerFailureRatio   float64 `koanf:"breaker_failure_ratio"`
	BreakerMinRequests    int     `koanf:"breaker_min_requests"`

	// OTelEndpoint is the OTLP/HTTP traces endpoint; empty disables tracing.
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":8084",
		CacheBackend:          CacheBackendMemory,
		RedisAddr:             "localhost:6379",
		CacheTTLSeconds:       30,
		CacheMaxEntries:       100_000,
		AnalyticsBaseURL:      "http://localhost:8083",
		ProgressBaseURL:       "http://localhost:8082",
		UpstreamTimeoutMS:     2000,
		BreakerMaxRequests:    3,
		BreakerTimeoutSeconds: 30,
		BreakerFailureRatio:   0.6,
		BreakerMinRequests:    10,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CacheTTLSeconds <= 0:
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	case c.UpstreamTimeoutMS <= 0:
		return fmt.Errorf("%w: upstream_timeout_ms must be positive", ErrInvalidConfig)
	case c.CacheBackend != CacheBackendMemory && c.CacheBackend != CacheBackendRedis:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	case c.CacheBackend == CacheBackendRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr must not be empty", ErrInvalidConfig)
	case c.BreakerFailureRatio < 0 || c.BreakerFailureRatio > 1:
		return fmt.Errorf("%w: breaker_failure_ratio must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

// CacheTTL returns the recommendation cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// UpstreamTimeout returns the per-call upstream timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// BreakerTimeout returns how long a tripped breaker stays open.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSeconds) * time.Second
}
