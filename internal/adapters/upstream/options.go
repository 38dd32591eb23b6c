package upstream

import (
	"net/http"
	"time"

	"github.com/okian/orbit-recommendation/pkg/logger"
)

// BreakerConfig tunes the circuit breaker placed in front of a service.
type BreakerConfig struct {
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// FailureRatio trips the breaker once reached.
	FailureRatio float64
	// MinRequests is the sample size required before tripping.
	MinRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		OpenTimeout:  30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  10,
	}
}

// Option applies a configuration option to a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every upstream call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker replaces the circuit breaker settings.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		if cfg.MaxRequests > 0 {
			c.breakerCfg.MaxRequests = cfg.MaxRequests
		}
		if cfg.OpenTimeout > 0 {
			c.breakerCfg.OpenTimeout = cfg.OpenTimeout
		}
		if cfg.FailureRatio > 0 && cfg.FailureRatio <= 1 {
			c.breakerCfg.FailureRatio = cfg.FailureRatio
		}
		if cfg.MinRequests > 0 {
			c.breakerCfg.MinRequests = cfg.MinRequests
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
