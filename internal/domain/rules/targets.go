package rules

import (
	"fmt"

	"github.com/okian/orbit-recommendation/internal/domain/model"
)

// Targets derives the target identifier each rule recommends. The default
// composes ids from course/path identifiers and counters; a catalog-backed
// implementation can replace it without touching rule order or predicates.
type Targets interface {
	ResumeLesson(c model.UserContext) string
	NextLesson(c model.UserContext) string
	NextCourseInPath(c model.UserContext) string
	ReentryLesson(c model.UserContext) string
	ReviewLesson(c model.UserContext) string
	AlternativeCourse(c model.UserContext) string
	PrerequisiteLesson(c model.UserContext) string
	RelatedPath(c model.UserContext) string
	ComplementaryPath(c model.UserContext) string
	StarterPath(c model.UserContext) string
	PathLesson(c model.UserContext) string
}

// FormulaTargets builds target ids by string composition.
type FormulaTargets struct{}

var _ Targets = FormulaTargets{}

// ResumeLesson returns the first started but unfinished lesson.
func (FormulaTargets) ResumeLesson(c model.UserContext) string {
	return c.StartedButIncompleteLessons[0]
}

// NextLesson returns the lesson after the last completed one in the active course.
func (FormulaTargets) NextLesson(c model.UserContext) string {
	return fmt.Sprintf("%s-lesson-%d", c.ActiveCourseID, c.CompletedLessonsCount+1)
}

// NextCourseInPath points at the course following the active one.
func (FormulaTargets) NextCourseInPath(c model.UserContext) string {
	return pathOrCourse(c) + "-course-next"
}

// ReentryLesson restarts the active course, or a starter lesson without one.
func (FormulaTargets) ReentryLesson(c model.UserContext) string {
	if c.ActiveCourseID != "" {
		return c.ActiveCourseID + "-lesson-1"
	}
	return "starter-lesson-1"
}

// ReviewLesson returns review material for the active course.
func (FormulaTargets) ReviewLesson(c model.UserContext) string {
	if c.ActiveCourseID != "" {
		return c.ActiveCourseID + "-review"
	}
	return "review-content"
}

// AlternativeCourse suggests a sibling of a course with heavy drop-off.
func (FormulaTargets) AlternativeCourse(c model.UserContext) string {
	return pathOrCourse(c) + "-course-alternative"
}

// PrerequisiteLesson returns groundwork for a struggling learner.
func (FormulaTargets) PrerequisiteLesson(c model.UserContext) string {
	if c.ActiveCourseID != "" {
		return c.ActiveCourseID + "-prerequisite-1"
	}
	return "prerequisite-lesson-1"
}

// RelatedPath suggests a path next to the one just explored.
func (FormulaTargets) RelatedPath(c model.UserContext) string {
	return "related-path-" + pathOrCourse(c)
}

// ComplementaryPath is a fixed suggestion for near-finished paths.
func (FormulaTargets) ComplementaryPath(model.UserContext) string {
	return "complementary-path"
}

// StarterPath is the popular entry path for new learners.
func (FormulaTargets) StarterPath(model.UserContext) string {
	return "popular-starter-path"
}

// PathLesson continues the active course, or opens the active path.
func (FormulaTargets) PathLesson(c model.UserContext) string {
	if c.ActiveCourseID != "" {
		return c.ActiveCourseID + "-lesson-next"
	}
	return c.ActivePathID + "-lesson-1"
}

// pathOrCourse prefers the active path; course-scoped requests without a
// path fall back to the course id so the target is never "-course-next".
func pathOrCourse(c model.UserContext) string {
	if c.ActivePathID != "" {
		return c.ActivePathID
	}
	return c.ActiveCourseID
}
