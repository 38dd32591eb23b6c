// Package model contains domain models passed between layers.
package model

import "time"

// BehavioralSummary is an upstream snapshot of event-derived counters, either
// for a user (starts, completions, last activity) or for a course (total
// starts, completions, drop-off). It carries no identity beyond the key it
// was fetched for.
type BehavioralSummary struct {
	UserID                string     `json:"userId,omitempty"`
	LessonsStartedCount   int64      `json:"lessonsStartedCount"`
	LessonsCompletedCount int64      `json:"lessonsCompletedCount"`
	LastActiveAt          *time.Time `json:"lastActiveAt,omitempty"`

	CourseID               string `json:"courseId,omitempty"`
	TotalLessonStarts      int64  `json:"totalLessonStarts"`
	TotalLessonCompletions int64  `json:"totalLessonCompletions"`
	DropOffCount           int64  `json:"dropOffCount"`
}

// ProgressSummary is a per-user completion snapshot scoped to a course or a
// path. CompletionPercentage is on a 0-100 scale.
type ProgressSummary struct {
	UserID                string     `json:"userId,omitempty"`
	PathID                string     `json:"pathId,omitempty"`
	CourseID              string     `json:"courseId,omitempty"`
	TotalLessons          int        `json:"totalLessons"`
	CompletedLessonsCount int        `json:"completedLessonsCount"`
	CompletionPercentage  float64    `json:"completionPercentage"`
	LastUpdatedAt         *time.Time `json:"lastUpdatedAt,omitempty"`
}

// CompletionPercentage returns completed/total*100, or 0 when total is 0.
func CompletionPercentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// EmptyCourseSummary is the default used when a course summary is missing.
func EmptyCourseSummary(courseID string) BehavioralSummary {
	return BehavioralSummary{CourseID: courseID}
}

// EmptyCourseProgress is the default used when course progress is missing.
func EmptyCourseProgress(userID, courseID string) ProgressSummary {
	return ProgressSummary{UserID: userID, CourseID: courseID}
}

// EmptyPathProgress is the default used when path progress is missing.
func EmptyPathProgress(userID, pathID string) ProgressSummary {
	return ProgressSummary{UserID: userID, PathID: pathID}
}
