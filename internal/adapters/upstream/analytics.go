package upstream

import (
	"context"
	"net/url"

	"github.com/okian/orbit-recommendation/internal/domain/aggregate"
	"github.com/okian/orbit-recommendation/internal/domain/model"
)

// AnalyticsClient reads behavioral summaries from the analytics service.
type AnalyticsClient struct {
	*Client
}

var _ aggregate.Analytics = (*AnalyticsClient)(nil)

// NewAnalyticsClient constructs a client for the analytics service at baseURL.
func NewAnalyticsClient(baseURL string, opts ...Option) *AnalyticsClient {
	return &AnalyticsClient{Client: newClient("analytics", baseURL, opts...)}
}

// UserSummary fetches the behavioral summary of a user.
func (c *AnalyticsClient) UserSummary(ctx context.Context, userID string) (model.BehavioralSummary, error) {
	return getJSON[model.BehavioralSummary](ctx, c.Client, aggregate.SourceUserSummary,
		"/analytics/users/"+url.PathEscape(userID))
}

// CourseSummary fetches the behavioral summary of a course.
func (c *AnalyticsClient) CourseSummary(ctx context.Context, courseID string) (model.BehavioralSummary, error) {
	return getJSON[model.BehavioralSummary](ctx, c.Client, aggregate.SourceCourseSummary,
		"/analytics/courses/"+url.PathEscape(courseID))
}
