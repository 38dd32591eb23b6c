package upstream

import (
	"context"
	"net/url"

	"github.com/okian/orbit-recommendation/internal/domain/aggregate"
	"github.com/okian/orbit-recommendation/internal/domain/model"
)

// ProgressClient reads completion snapshots from the progress service.
type ProgressClient struct {
	*Client
}

var _ aggregate.Progress = (*ProgressClient)(nil)

// NewProgressClient constructs a client for the progress service at baseURL.
func NewProgressClient(baseURL string, opts ...Option) *ProgressClient {
	return &ProgressClient{Client: newClient("progress", baseURL, opts...)}
}

// CourseProgress fetches a user's progress in a course.
func (c *ProgressClient) CourseProgress(ctx context.Context, userID, courseID string) (model.ProgressSummary, error) {
	return withPercentage(getJSON[model.ProgressSummary](ctx, c.Client, aggregate.SourceCourseProgress,
		"/progress/users/"+url.PathEscape(userID)+"/courses/"+url.PathEscape(courseID)))
}

// PathProgress fetches a user's progress along a learning path.
func (c *ProgressClient) PathProgress(ctx context.Context, userID, pathID string) (model.ProgressSummary, error) {
	return withPercentage(getJSON[model.ProgressSummary](ctx, c.Client, aggregate.SourcePathProgress,
		"/progress/users/"+url.PathEscape(userID)+"/paths/"+url.PathEscape(pathID)))
}

// withPercentage derives completionPercentage from the counters when the
// payload left it out.
func withPercentage(p model.ProgressSummary, err error) (model.ProgressSummary, error) {
	if err == nil && p.CompletionPercentage == 0 {
		p.CompletionPercentage = model.CompletionPercentage(p.CompletedLessonsCount, p.TotalLessons)
	}
	return p, err
}
