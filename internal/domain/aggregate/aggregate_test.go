package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/orbit-recommendation/internal/domain/model"
	"github.com/okian/orbit-recommendation/pkg/logger"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeAnalytics struct {
	user   func(ctx context.Context, userID string) (model.BehavioralSummary, error)
	course func(ctx context.Context, courseID string) (model.BehavioralSummary, error)
}

func (f fakeAnalytics) UserSummary(ctx context.Context, userID string) (model.BehavioralSummary, error) {
	if f.user == nil {
		return model.BehavioralSummary{}, errors.New("no user summary")
	}
	return f.user(ctx, userID)
}

func (f fakeAnalytics) CourseSummary(ctx context.Context, courseID string) (model.BehavioralSummary, error) {
	if f.course == nil {
		return model.BehavioralSummary{}, errors.New("no course summary")
	}
	return f.course(ctx, courseID)
}

type fakeProgress struct {
	course func(ctx context.Context, userID, courseID string) (model.ProgressSummary, error)
	path   func(ctx context.Context, userID, pathID string) (model.ProgressSummary, error)
}

func (f fakeProgress) CourseProgress(ctx context.Context, userID, courseID string) (model.ProgressSummary, error) {
	if f.course == nil {
		return model.ProgressSummary{}, errors.New("no course progress")
	}
	return f.course(ctx, userID, courseID)
}

func (f fakeProgress) PathProgress(ctx context.Context, userID, pathID string) (model.ProgressSummary, error) {
	if f.path == nil {
		return model.ProgressSummary{}, errors.New("no path progress")
	}
	return f.path(ctx, userID, pathID)
}

func activeUser(_ context.Context, userID string) (model.BehavioralSummary, error) {
	last := fixedNow.Add(-2 * 24 * time.Hour)
	return model.BehavioralSummary{UserID: userID, LessonsStartedCount: 6, LessonsCompletedCount: 4, LastActiveAt: &last}, nil
}

func newTestAggregator(a Analytics, p Progress) *Aggregator {
	return New(a, p, WithClock(func() time.Time { return fixedNow }))
}

func TestAggregate(t *testing.T) {
	Convey("Given an aggregator", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()

		Convey("When every upstream read succeeds", func() {
			agg := newTestAggregator(
				fakeAnalytics{
					user: activeUser,
					course: func(_ context.Context, courseID string) (model.BehavioralSummary, error) {
						return model.BehavioralSummary{CourseID: courseID, TotalLessonStarts: 20, DropOffCount: 7}, nil
					},
				},
				fakeProgress{
					course: func(_ context.Context, userID, courseID string) (model.ProgressSummary, error) {
						return model.ProgressSummary{UserID: userID, CourseID: courseID, TotalLessons: 10, CompletedLessonsCount: 4, CompletionPercentage: 40}, nil
					},
					path: func(_ context.Context, userID, pathID string) (model.ProgressSummary, error) {
						return model.ProgressSummary{UserID: userID, PathID: pathID, TotalLessons: 30, CompletedLessonsCount: 4}, nil
					},
				},
			)
			c, err := agg.AggregateFor(ctx, "u1", "c1", "p1")

			Convey("Then all fields are folded into the context", func() {
				So(err, ShouldBeNil)
				So(c.UserID, ShouldEqual, "u1")
				So(c.ActiveCourseID, ShouldEqual, "c1")
				So(c.ActivePathID, ShouldEqual, "p1")
				So(c.LessonsStartedCount, ShouldEqual, 6)
				So(c.TotalLessonsInActiveCourse, ShouldEqual, 10)
				So(c.CompletedLessonsCount, ShouldEqual, 4)
				So(c.CompletionPercentage, ShouldEqual, 40)
				So(c.CourseTotalStarts, ShouldEqual, 20)
				So(c.CourseDropOffCount, ShouldEqual, 7)
				So(c.DaysSinceLastActivity, ShouldEqual, 2)
				So(c.IsConsistentlyActive, ShouldBeTrue)
				So(c.IsNewUser, ShouldBeFalse)
			})
		})

		Convey("When course progress times out but the user summary succeeds", func() {
			agg := newTestAggregator(
				fakeAnalytics{user: activeUser},
				fakeProgress{
					course: func(context.Context, string, string) (model.ProgressSummary, error) {
						return model.ProgressSummary{}, context.DeadlineExceeded
					},
				},
			)
			c, err := agg.AggregateFor(ctx, "u1", "c1", "")

			Convey("Then aggregation completes with defaulted progress", func() {
				So(err, ShouldBeNil)
				So(c.LessonsStartedCount, ShouldEqual, 6)
				So(c.ActiveCourseID, ShouldEqual, "c1")
				So(c.TotalLessonsInActiveCourse, ShouldEqual, 0)
				So(c.CompletedLessonsCount, ShouldEqual, 0)
				_, ok := c.CourseDropOffRate()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the user summary is missing", func() {
			agg := newTestAggregator(fakeAnalytics{}, fakeProgress{})
			c, err := agg.Aggregate(ctx, "u2")

			Convey("Then the user is new and infinitely inactive", func() {
				So(err, ShouldBeNil)
				So(c.IsNewUser, ShouldBeTrue)
				So(c.IsInactive, ShouldBeTrue)
				So(c.DaysSinceLastActivity, ShouldEqual, model.UnboundedDays)
				So(c.ActiveCourseID, ShouldBeEmpty)
				So(c.StartedButIncompleteLessons, ShouldBeEmpty)
			})
		})

		Convey("When only the single-argument form is used", func() {
			var courseCalls int
			agg := newTestAggregator(
				fakeAnalytics{user: activeUser},
				fakeProgress{course: func(context.Context, string, string) (model.ProgressSummary, error) {
					courseCalls++
					return model.ProgressSummary{}, nil
				}},
			)
			_, err := agg.Aggregate(ctx, "u1")

			Convey("Then no course or path reads are issued", func() {
				So(err, ShouldBeNil)
				So(courseCalls, ShouldEqual, 0)
			})
		})
	})
}

func TestAggregateConcurrency(t *testing.T) {
	Convey("Given four reads that each wait for the others to start", t, func() {
		So(logger.Init(), ShouldBeNil)

		var started sync.WaitGroup
		started.Add(4)
		all := make(chan struct{})
		go func() {
			started.Wait()
			close(all)
		}()
		rendezvous := func(ctx context.Context) error {
			started.Done()
			select {
			case <-all:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New("reads were not concurrent")
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		agg := newTestAggregator(
			fakeAnalytics{
				user: func(ctx context.Context, userID string) (model.BehavioralSummary, error) {
					if err := rendezvous(ctx); err != nil {
						return model.BehavioralSummary{}, err
					}
					return model.BehavioralSummary{UserID: userID, LessonsStartedCount: 1}, nil
				},
				course: func(ctx context.Context, courseID string) (model.BehavioralSummary, error) {
					if err := rendezvous(ctx); err != nil {
						return model.BehavioralSummary{}, err
					}
					return model.BehavioralSummary{CourseID: courseID, TotalLessonStarts: 10}, nil
				},
			},
			fakeProgress{
				course: func(ctx context.Context, userID, courseID string) (model.ProgressSummary, error) {
					if err := rendezvous(ctx); err != nil {
						return model.ProgressSummary{}, err
					}
					return model.ProgressSummary{CourseID: courseID, TotalLessons: 5}, nil
				},
				path: func(ctx context.Context, userID, pathID string) (model.ProgressSummary, error) {
					if err := rendezvous(ctx); err != nil {
						return model.ProgressSummary{}, err
					}
					return model.ProgressSummary{PathID: pathID, TotalLessons: 9}, nil
				},
			},
		)

		c, err := agg.AggregateFor(context.Background(), "u1", "c1", "p1")

		Convey("Then all reads overlap and their values are joined", func() {
			So(err, ShouldBeNil)
			So(c.IsNewUser, ShouldBeFalse)
			So(c.TotalLessonsInActiveCourse, ShouldEqual, 5)
			So(c.CourseTotalStarts, ShouldEqual, 10)
			So(c.ActivePathID, ShouldEqual, "p1")
		})
	})
}

func TestAggregateFailures(t *testing.T) {
	Convey("Given failing branches", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()

		Convey("When a scoped read panics", func() {
			agg := newTestAggregator(
				fakeAnalytics{user: activeUser},
				fakeProgress{path: func(context.Context, string, string) (model.ProgressSummary, error) {
					panic("decoder exploded")
				}},
			)
			c, err := agg.AggregateFor(ctx, "u1", "", "p1")

			Convey("Then it degrades to the user-only context", func() {
				So(err, ShouldBeNil)
				So(c.UserID, ShouldEqual, "u1")
				So(c.ActivePathID, ShouldBeEmpty)
				So(c.LessonsStartedCount, ShouldEqual, 6)
			})
		})

		Convey("When the user read panics", func() {
			agg := newTestAggregator(
				fakeAnalytics{user: func(context.Context, string) (model.BehavioralSummary, error) {
					panic("boom")
				}},
				fakeProgress{},
			)
			_, err := agg.Aggregate(ctx, "u1")

			Convey("Then the join error is reported", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrJoin), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, SourceUserSummary)
			})
		})

		Convey("When the caller cancels", func() {
			cctx, cancel := context.WithCancel(ctx)
			agg := newTestAggregator(
				fakeAnalytics{user: func(ctx context.Context, _ string) (model.BehavioralSummary, error) {
					cancel()
					<-ctx.Done()
					return model.BehavioralSummary{}, ctx.Err()
				}},
				fakeProgress{},
			)
			_, err := agg.Aggregate(cctx, "u1")

			Convey("Then the in-flight read is abandoned and the join fails", func() {
				So(errors.Is(err, ErrJoin), ShouldBeTrue)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
