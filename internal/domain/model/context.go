package model

import (
	"math"
	"time"
)

// Behavioral thresholds used to derive UserContext flags.
const (
	InactivityThresholdDays = 7
	ConsistentActivityDays  = 3
	BingeThresholdLessons   = 5
	BingeWindowDays         = 1
)

// UnboundedDays stands for "no recorded activity": larger than any threshold.
const UnboundedDays = math.MaxInt32

const day = 24 * time.Hour

// ContextInput holds the settled upstream reads for one aggregation. A nil
// User means the user summary was absent; nil course/path fields mean the
// caller did not ask for that scope.
type ContextInput struct {
	UserID         string
	User           *BehavioralSummary
	CourseProgress *ProgressSummary
	PathProgress   *ProgressSummary
	CourseSummary  *BehavioralSummary
}

// UserContext is the joined, derived view of a user's state that rules
// evaluate. Build it with NewUserContext and pass it by value.
type UserContext struct {
	UserID         string
	ActiveCourseID string
	ActivePathID   string

	LessonsStartedCount        int64
	LessonsCompletedCount      int64
	LastActiveAt               time.Time // zero when unknown
	CompletedLessonsCount      int
	TotalLessonsInActiveCourse int
	CompletionPercentage       float64
	CourseDropOffCount         int64
	CourseTotalStarts          int64

	// Per-lesson detail is not exposed upstream yet; both lists stay empty
	// until a lesson-level progress source exists.
	CompletedLessons            []string
	StartedButIncompleteLessons []string

	IsNewUser             bool
	IsInactive            bool
	DaysSinceLastActivity int
	IsConsistentlyActive  bool
	IsBingeLearning       bool
}

// NewUserContext folds upstream reads into a context evaluated at now.
func NewUserContext(in ContextInput, now time.Time) UserContext {
	c := UserContext{
		UserID:                      in.UserID,
		CompletedLessons:            []string{},
		StartedButIncompleteLessons: []string{},
	}

	if u := in.User; u != nil {
		c.LessonsStartedCount = u.LessonsStartedCount
		c.LessonsCompletedCount = u.LessonsCompletedCount
		if u.LastActiveAt != nil {
			c.LastActiveAt = *u.LastActiveAt
		}
	}
	c.IsNewUser = in.User == nil || in.User.LessonsStartedCount == 0

	if p := in.CourseProgress; p != nil {
		c.ActiveCourseID = p.CourseID
		c.TotalLessonsInActiveCourse = p.TotalLessons
		c.CompletedLessonsCount = p.CompletedLessonsCount
		c.CompletionPercentage = p.CompletionPercentage
	}
	if p := in.PathProgress; p != nil {
		c.ActivePathID = p.PathID
	}
	if s := in.CourseSummary; s != nil {
		c.CourseDropOffCount = s.DropOffCount
		c.CourseTotalStarts = s.TotalLessonStarts
	}

	c.DaysSinceLastActivity = DaysSince(c.LastActiveAt, now)
	c.IsInactive = c.DaysSinceLastActivity > InactivityThresholdDays
	c.IsConsistentlyActive = c.DaysSinceLastActivity > 0 && c.DaysSinceLastActivity <= ConsistentActivityDays
	c.IsBingeLearning = c.LessonsCompletedCount >= BingeThresholdLessons && c.DaysSinceLastActivity <= BingeWindowDays

	return c
}

// DaysSince returns whole days elapsed from t to now, or UnboundedDays when
// t is zero.
func DaysSince(t, now time.Time) int {
	if t.IsZero() {
		return UnboundedDays
	}
	return int(now.Sub(t) / day)
}

// CourseDropOffRate returns dropOff/totalStarts. ok is false when the course
// has no recorded starts.
func (c UserContext) CourseDropOffRate() (rate float64, ok bool) {
	if c.CourseTotalStarts <= 0 {
		return 0, false
	}
	return float64(c.CourseDropOffCount) / float64(c.CourseTotalStarts), true
}

// HasActivity reports whether a last-active timestamp was known.
func (c UserContext) HasActivity() bool {
	return c.DaysSinceLastActivity != UnboundedDays
}
