package aggregate

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/orbit-recommendation/pkg/logger"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithClock sets the time source used for derived activity fields.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTracer sets the tracer used for aggregation spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Aggregator) {
		if t != nil {
			a.tracer = t
		}
	}
}
