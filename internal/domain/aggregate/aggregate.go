// Package aggregate builds a UserContext by reading upstream summaries
// concurrently. Every read resolves to a value or a default before the join,
// so a failing upstream degrades the context instead of failing it.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/orbit-recommendation/internal/domain/model"
	"github.com/okian/orbit-recommendation/pkg/logger"
	"github.com/okian/orbit-recommendation/pkg/metrics"
	"github.com/okian/orbit-recommendation/pkg/tracing"
)

// Upstream read names, used for spans and logs.
const (
	SourceUserSummary    = "user_summary"
	SourceCourseSummary  = "course_summary"
	SourceCourseProgress = "course_progress"
	SourcePathProgress   = "path_progress"
)

// Analytics reads behavioral summaries.
type Analytics interface {
	UserSummary(ctx context.Context, userID string) (model.BehavioralSummary, error)
	CourseSummary(ctx context.Context, courseID string) (model.BehavioralSummary, error)
}

// Progress reads completion snapshots.
type Progress interface {
	CourseProgress(ctx context.Context, userID, courseID string) (model.ProgressSummary, error)
	PathProgress(ctx context.Context, userID, pathID string) (model.ProgressSummary, error)
}

// Aggregator joins upstream reads into a UserContext. It holds no per-request
// state and is safe for concurrent use.
type Aggregator struct {
	analytics Analytics
	progress  Progress

	now    func() time.Time
	logger logger.Logger
	tracer trace.Tracer
}

// New constructs an Aggregator over the given upstream readers.
func New(analytics Analytics, progress Progress, opts ...Option) *Aggregator {
	a := &Aggregator{
		analytics: analytics,
		progress:  progress,
		now:       time.Now,
		tracer:    tracing.Tracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate builds the context for userID from the user summary alone.
func (a *Aggregator) Aggregate(ctx context.Context, userID string) (model.UserContext, error) {
	return a.aggregate(ctx, userID, "", "")
}

// AggregateFor builds the context for userID scoped to an optional course
// and path. If the scoped join fails it degrades to Aggregate.
func (a *Aggregator) AggregateFor(ctx context.Context, userID, courseID, pathID string) (model.UserContext, error) {
	c, err := a.aggregate(ctx, userID, courseID, pathID)
	if err == nil {
		return c, nil
	}
	a.log().Warn(ctx, "scoped aggregation failed, retrying without course and path",
		logger.String("userId", userID),
		logger.String("courseId", courseID),
		logger.String("pathId", pathID),
		logger.Error(err))
	return a.Aggregate(ctx, userID)
}

// outcome is the settled result of one upstream read.
type outcome[T any] struct {
	value T
	err   error
}

func (o outcome[T]) or(def T) T {
	if o.err != nil {
		return def
	}
	return o.value
}

func (a *Aggregator) aggregate(ctx context.Context, userID, courseID, pathID string) (model.UserContext, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregationLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx, span := a.tracer.Start(ctx, "aggregate.Context", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("course.id", courseID),
		attribute.String("path.id", pathID),
	))
	defer span.End()

	var (
		user           outcome[model.BehavioralSummary]
		courseSummary  outcome[model.BehavioralSummary]
		courseProgress outcome[model.ProgressSummary]
		pathProgress   outcome[model.ProgressSummary]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(fetch(gctx, a, userID, SourceUserSummary, &user, func(ctx context.Context) (model.BehavioralSummary, error) {
		return a.analytics.UserSummary(ctx, userID)
	}))
	if courseID != "" {
		g.Go(fetch(gctx, a, userID, SourceCourseProgress, &courseProgress, func(ctx context.Context) (model.ProgressSummary, error) {
			return a.progress.CourseProgress(ctx, userID, courseID)
		}))
		g.Go(fetch(gctx, a, userID, SourceCourseSummary, &courseSummary, func(ctx context.Context) (model.BehavioralSummary, error) {
			return a.analytics.CourseSummary(ctx, courseID)
		}))
	}
	if pathID != "" {
		g.Go(fetch(gctx, a, userID, SourcePathProgress, &pathProgress, func(ctx context.Context) (model.ProgressSummary, error) {
			return a.progress.PathProgress(ctx, userID, pathID)
		}))
	}

	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.UserContext{}, err
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.UserContext{}, fmt.Errorf("%w: %w", ErrJoin, err)
	}

	in := model.ContextInput{UserID: userID}
	if user.err == nil {
		u := user.value
		in.User = &u
	}
	if courseID != "" {
		cp := courseProgress.or(model.EmptyCourseProgress(userID, courseID))
		if cp.CourseID == "" {
			cp.CourseID = courseID
		}
		cs := courseSummary.or(model.EmptyCourseSummary(courseID))
		in.CourseProgress = &cp
		in.CourseSummary = &cs
	}
	if pathID != "" {
		pp := pathProgress.or(model.EmptyPathProgress(userID, pathID))
		if pp.PathID == "" {
			pp.PathID = pathID
		}
		in.PathProgress = &pp
	}

	return model.NewUserContext(in, a.now()), nil
}

// fetch wraps one upstream read as an errgroup branch. Read errors are kept
// in out and never returned; only a panic fails the join.
func fetch[T any](ctx context.Context, a *Aggregator, userID, source string, out *outcome[T], read func(context.Context) (T, error)) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s read panicked: %v", ErrJoin, source, r)
			}
		}()

		ctx, span := a.tracer.Start(ctx, "aggregate."+source)
		defer span.End()

		v, rerr := read(ctx)
		if rerr != nil {
			span.RecordError(rerr)
			a.log().Debug(ctx, "upstream read defaulted",
				logger.String("source", source),
				logger.String("userId", userID),
				logger.Error(rerr))
		}
		*out = outcome[T]{value: v, err: rerr}
		return nil
	}
}

func (a *Aggregator) log() logger.Logger {
	if a.logger != nil {
		return a.logger
	}
	return logger.Named("aggregate")
}
