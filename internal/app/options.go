package service

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/orbit-recommendation/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine replaces the rule engine.
func WithEngine(e Decider) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithTTL sets how long computed recommendations stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCacheBackend names the cache backend in service statistics.
func WithCacheBackend(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.cacheBackend = name
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for decision spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}
