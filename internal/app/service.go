// Package service orchestrates recommendation decisions: a read-through
// cache in front of context aggregation and rule evaluation. Decisions never
// fail; any absorbed error yields the fallback recommendation.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/orbit-recommendation/internal/adapters/cache"
	"github.com/okian/orbit-recommendation/internal/domain/model"
	"github.com/okian/orbit-recommendation/internal/domain/rules"
	"github.com/okian/orbit-recommendation/pkg/logger"
	"github.com/okian/orbit-recommendation/pkg/metrics"
	"github.com/okian/orbit-recommendation/pkg/tracing"
)

const defaultTTL = 30 * time.Second

// Aggregator builds user contexts.
type Aggregator interface {
	Aggregate(ctx context.Context, userID string) (model.UserContext, error)
	AggregateFor(ctx context.Context, userID, courseID, pathID string) (model.UserContext, error)
}

// Decider maps a context to at most one recommendation.
type Decider interface {
	Decide(c model.UserContext) (model.Recommendation, bool)
}

// Service implements the recommendation API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	aggregator Aggregator
	engine     Decider
	store      cache.Store

	// Configuration
	ttl          time.Duration
	cacheBackend string

	// State
	started bool

	// Counters reported by GetStats
	decisions    atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	cacheCorrupt atomic.Int64
	cacheErrors  atomic.Int64
	fallbacks    atomic.Int64

	logger logger.Logger
	tracer trace.Tracer
}

// New constructs a Service over an aggregator and a cache store.
func New(aggregator Aggregator, store cache.Store, opts ...Option) *Service {
	s := &Service{
		aggregator:   aggregator,
		engine:       rules.New(),
		store:        store,
		ttl:          defaultTTL,
		cacheBackend: "memory",
		tracer:       tracing.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.String("cacheBackend", s.cacheBackend),
		logger.Duration("ttl", s.ttl),
	)
	return nil
}

// Stop releases the cache store if it holds resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing cache store failed", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "recommendation service stopped")
}

// Next returns the next recommendation for userID.
func (s *Service) Next(ctx context.Context, userID string) model.Recommendation {
	return s.decide(ctx, userID, "", "")
}

// All returns every recommendation for userID. Only the next step is
// produced today, so the result holds exactly one element.
func (s *Service) All(ctx context.Context, userID string) []model.Recommendation {
	return []model.Recommendation{s.Next(ctx, userID)}
}

// Contextual returns the recommendation for userID scoped to a course and/or
// path. Results are cached per scope.
func (s *Service) Contextual(ctx context.Context, userID, courseID, pathID string) model.Recommendation {
	return s.decide(ctx, userID, courseID, pathID)
}

// Invalidate evicts the cached recommendation for the given scope.
func (s *Service) Invalidate(ctx context.Context, userID, courseID, pathID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrComputation, r)
		}
	}()

	key := cache.Key(userID, courseID, pathID)
	if err := s.store.Delete(ctx, key); err != nil {
		s.log().Warn(ctx, "cache invalidation failed", logger.String("key", key), logger.Error(err))
		return err
	}
	s.log().Debug(ctx, "cache entry invalidated", logger.String("key", key))
	return nil
}

func (s *Service) decide(ctx context.Context, userID, courseID, pathID string) (rec model.Recommendation) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "recommendation.Decide", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("course.id", courseID),
		attribute.String("path.id", pathID),
	))
	defer func() {
		span.SetAttributes(attribute.String("rule", string(rec.RuleApplied)))
		span.End()
		s.decisions.Add(1)
		metrics.RecordDecision(string(rec.RuleApplied))
		metrics.RecordDecisionLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	// Runs before the deferred span end above, so rec is set when recorded.
	defer func() {
		if r := recover(); r != nil {
			rec = s.fail(ctx, span, userID, courseID, pathID, fmt.Errorf("%w: panic: %v", ErrComputation, r))
		}
	}()

	key := cache.Key(userID, courseID, pathID)
	cached, result := s.lookup(ctx, key)
	span.SetAttributes(attribute.String("cache.result", result))
	if result == metrics.CacheHit {
		return cached
	}

	rec, err := s.compute(ctx, userID, courseID, pathID)
	if err != nil {
		return s.fail(ctx, span, userID, courseID, pathID, err)
	}

	s.save(ctx, key, rec)
	return rec
}

// fail records a failed decision and returns the uncached fallback. A caller
// that went away is routine and only logged at debug.
func (s *Service) fail(ctx context.Context, span trace.Span, userID, courseID, pathID string, err error) model.Recommendation {
	span.SetStatus(codes.Error, err.Error())
	s.fallbacks.Add(1)
	metrics.RecordFallback(metrics.FallbackFailure)

	fields := []logger.Field{
		logger.String("userId", userID),
		logger.String("courseId", courseID),
		logger.String("pathId", pathID),
		logger.Error(err),
	}
	if errors.Is(err, context.Canceled) {
		s.log().Debug(ctx, "request cancelled, returning fallback", fields...)
	} else {
		s.log().Error(ctx, "recommendation failed, returning fallback", fields...)
	}
	return model.Fallback()
}

// lookup reads key from the cache. Any result other than CacheHit means the
// caller must compute.
func (s *Service) lookup(ctx context.Context, key string) (model.Recommendation, string) {
	raw, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrMiss):
		s.cacheMisses.Add(1)
		metrics.RecordCacheResult(metrics.CacheMiss)
		return model.Recommendation{}, metrics.CacheMiss
	case err != nil:
		s.cacheErrors.Add(1)
		metrics.RecordCacheResult(metrics.CacheError)
		s.log().Warn(ctx, "cache read failed, recomputing", logger.String("key", key), logger.Error(err))
		return model.Recommendation{}, metrics.CacheError
	}

	var rec model.Recommendation
	if err := json.Unmarshal(raw, &rec); err == nil {
		err = rec.Validate()
	}
	if err != nil {
		s.cacheCorrupt.Add(1)
		metrics.RecordCacheResult(metrics.CacheCorrupt)
		s.log().Warn(ctx, "corrupt cache entry, recomputing", logger.String("key", key), logger.Error(err))
		return model.Recommendation{}, metrics.CacheCorrupt
	}

	s.cacheHits.Add(1)
	metrics.RecordCacheResult(metrics.CacheHit)
	s.log().Debug(ctx, "recommendation cache hit", logger.String("key", key))
	return rec, metrics.CacheHit
}

func (s *Service) compute(ctx context.Context, userID, courseID, pathID string) (rec model.Recommendation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrComputation, r)
		}
	}()

	var uc model.UserContext
	if courseID == "" && pathID == "" {
		uc, err = s.aggregator.Aggregate(ctx, userID)
	} else {
		uc, err = s.aggregator.AggregateFor(ctx, userID, courseID, pathID)
	}
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("%w: %w", ErrComputation, err)
	}

	rec, ok := s.engine.Decide(uc)
	if !ok {
		s.fallbacks.Add(1)
		metrics.RecordFallback(metrics.FallbackNoMatch)
		s.log().Info(ctx, "no rule matched, using fallback", logger.String("userId", userID))
		return model.Fallback(), nil
	}

	s.log().Info(ctx, "generated recommendation",
		logger.String("userId", userID),
		logger.String("rule", string(rec.RuleApplied)),
		logger.String("type", string(rec.Type)))
	return rec, nil
}

// save writes rec under key. Failures are logged and counted only.
func (s *Service) save(ctx context.Context, key string, rec model.Recommendation) {
	raw, err := json.Marshal(rec)
	if err == nil {
		err = s.store.Set(ctx, key, raw, s.ttl)
	}
	if err != nil {
		metrics.RecordCacheWriteError()
		s.log().Warn(ctx, "cache write failed", logger.String("key", key), logger.Error(err))
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"cacheBackend":    s.cacheBackend,
		"cacheTtlSeconds": s.ttl.Seconds(),
		"decisions":       s.decisions.Load(),
		"cacheHits":       s.cacheHits.Load(),
		"cacheMisses":     s.cacheMisses.Load(),
		"cacheCorrupt":    s.cacheCorrupt.Load(),
		"cacheErrors":     s.cacheErrors.Load(),
		"fallbacks":       s.fallbacks.Load(),
	}
	if sized, ok := s.store.(interface{ Size() int64 }); ok {
		stats["cacheEntries"] = sized.Size()
	}
	return stats
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l != nil {
		return l
	}
	return logger.Named("service")
}
