// Package rules maps a user context to at most one recommendation by
// evaluating a fixed, priority-ordered rule table. The first rule whose
// predicate holds wins. Evaluation is pure: no I/O, no mutation.
package rules

import (
	"fmt"

	"github.com/okian/orbit-recommendation/internal/domain/model"
)

// HighDropOffRate is the course drop-off ratio above which learners are
// steered to an alternative course.
const HighDropOffRate = 0.30

// Rule confidences.
const (
	confResumeIncomplete          = 0.90
	confSequentialProgress        = 0.85
	confPathContinuation          = 0.80
	confInactivityNudge           = 0.75
	confConsistencyReinforcement  = 0.80
	confBingeControl              = 0.65
	confDropOffAvoidance          = 0.70
	confPrerequisiteReinforcement = 0.78
	confExplorationBoost          = 0.60
	confSkillDiversification      = 0.55
	confColdStart                 = 0.50
	confSafeDefault               = 0.40
)

const prerequisiteThreshold = 3

type rule struct {
	tag   model.RuleTag
	match func(c model.UserContext) bool
	build func(c model.UserContext, t Targets) model.Recommendation
}

// table is the evaluation order. Order is part of the contract.
var table = [...]rule{ //nolint:gochecknoglobals // immutable rule table
	{model.RuleResumeIncomplete, resumeIncomplete, buildResumeIncomplete},
	{model.RuleSequentialProgress, sequentialProgress, buildSequentialProgress},
	{model.RulePathContinuation, courseFinished, buildPathContinuation},
	{model.RuleInactivityNudge, inactivityNudge, buildInactivityNudge},
	{model.RuleConsistencyReinforcement, consistencyReinforcement, buildConsistencyReinforcement},
	{model.RuleBingeControl, bingeControl, buildBingeControl},
	{model.RuleDropOffAvoidance, dropOffAvoidance, buildDropOffAvoidance},
	{model.RulePrerequisiteReinforcement, prerequisiteReinforcement, buildPrerequisiteReinforcement},
	// Same guard as PATH_CONTINUATION, so it never wins under this order.
	{model.RuleExplorationBoost, courseFinished, buildExplorationBoost},
	{model.RuleSkillDiversification, skillDiversification, buildSkillDiversification},
	{model.RuleColdStart, coldStart, buildColdStart},
	{model.RuleSafeDefault, safeDefault, buildSafeDefault},
}

// Engine evaluates the rule table against user contexts. It is safe for
// concurrent use.
type Engine struct {
	targets Targets
}

// New constructs an Engine using formula-derived targets by default.
func New(opts ...Option) *Engine {
	e := &Engine{targets: FormulaTargets{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide returns the recommendation of the first matching rule. ok is false
// when no rule matches.
func (e *Engine) Decide(c model.UserContext) (rec model.Recommendation, ok bool) {
	for i := range table {
		if table[i].match(c) {
			return table[i].build(c, e.targets), true
		}
	}
	return model.Recommendation{}, false
}

// Matching lists, in priority order, every rule whose predicate holds for c.
// Only the first one is ever applied.
func (e *Engine) Matching(c model.UserContext) []model.RuleTag {
	var out []model.RuleTag
	for i := range table {
		if table[i].match(c) {
			out = append(out, table[i].tag)
		}
	}
	return out
}

// Order returns the rule tags in evaluation order.
func Order() []model.RuleTag {
	out := make([]model.RuleTag, len(table))
	for i := range table {
		out[i] = table[i].tag
	}
	return out
}

// Predicates.

func resumeIncomplete(c model.UserContext) bool {
	return len(c.StartedButIncompleteLessons) > 0
}

func sequentialProgress(c model.UserContext) bool {
	return c.ActiveCourseID != "" &&
		c.CompletedLessonsCount > 0 &&
		c.TotalLessonsInActiveCourse > c.CompletedLessonsCount
}

func courseFinished(c model.UserContext) bool {
	return c.ActiveCourseID != "" &&
		c.TotalLessonsInActiveCourse > 0 &&
		c.CompletedLessonsCount >= c.TotalLessonsInActiveCourse
}

func inactivityNudge(c model.UserContext) bool {
	return c.IsInactive && c.DaysSinceLastActivity > model.InactivityThresholdDays
}

func consistencyReinforcement(c model.UserContext) bool {
	return c.IsConsistentlyActive && c.ActiveCourseID != ""
}

func bingeControl(c model.UserContext) bool {
	return c.IsBingeLearning
}

func dropOffAvoidance(c model.UserContext) bool {
	rate, ok := c.CourseDropOffRate()
	return ok && rate > HighDropOffRate && c.ActiveCourseID != ""
}

func prerequisiteReinforcement(c model.UserContext) bool {
	return len(c.StartedButIncompleteLessons) >= prerequisiteThreshold
}

// CompletionPercentage is compared against fractional bounds here even though
// upstream reports it on a 0-100 scale.
func skillDiversification(c model.UserContext) bool {
	return c.ActivePathID != "" &&
		c.CompletionPercentage > 0.8 &&
		c.CompletionPercentage < 1.0
}

func coldStart(c model.UserContext) bool {
	return c.IsNewUser
}

func safeDefault(c model.UserContext) bool {
	return c.ActivePathID != ""
}

// Constructors.

func buildResumeIncomplete(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypeLesson,
		TargetID:    t.ResumeLesson(c),
		Title:       "Resume incomplete lesson",
		Reason:      "You started this lesson but haven't completed it yet. Let's finish what you started!",
		Confidence:  confResumeIncomplete,
		RuleApplied: model.RuleResumeIncomplete,
	}
}

func buildSequentialProgress(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:     model.TypeLesson,
		TargetID: t.NextLesson(c),
		Title:    "Continue with next lesson",
		Reason: fmt.Sprintf("You've completed %d lessons. Continue with lesson %d in this course.",
			c.CompletedLessonsCount, c.CompletedLessonsCount+1),
		Confidence:  confSequentialProgress,
		RuleApplied: model.RuleSequentialProgress,
	}
}

func buildPathContinuation(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypeCourse,
		TargetID:    t.NextCourseInPath(c),
		Title:       "Continue to next course",
		Reason:      "You've completed this course! Continue your learning journey with the next course in this path.",
		Confidence:  confPathContinuation,
		RuleApplied: model.RulePathContinuation,
	}
}

func buildInactivityNudge(c model.UserContext, t Targets) model.Recommendation {
	reason := "It's been a while since your last activity. Start with a quick lesson to get back into the flow!"
	if c.HasActivity() {
		reason = fmt.Sprintf("It's been %d days since your last activity. Start with a quick lesson to get back into the flow!",
			c.DaysSinceLastActivity)
	}
	return model.Recommendation{
		Type:        model.TypeLesson,
		TargetID:    t.ReentryLesson(c),
		Title:       "Get back on track",
		Reason:      reason,
		Confidence:  confInactivityNudge,
		RuleApplied: model.RuleInactivityNudge,
	}
}

func buildConsistencyReinforcement(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypeLesson,
		TargetID:    t.NextLesson(c),
		Title:       "Keep up the momentum",
		Reason:      "You've been consistently active! Continue with the next lesson to maintain your learning streak.",
		Confidence:  confConsistencyReinforcement,
		RuleApplied: model.RuleConsistencyReinforcement,
	}
}

func buildBingeControl(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypeLesson,
		TargetID:    t.ReviewLesson(c),
		Title:       "Take a lighter approach",
		Reason:      "You've been learning a lot! Consider reviewing previous lessons or taking a shorter, lighter lesson.",
		Confidence:  confBingeControl,
		RuleApplied: model.RuleBingeControl,
	}
}

func buildDropOffAvoidance(c model.UserContext, t Targets) model.Recommendation {
	rate, _ := c.CourseDropOffRate()
	return model.Recommendation{
		Type:     model.TypeCourse,
		TargetID: t.AlternativeCourse(c),
		Title:    "Try an alternative path",
		Reason: fmt.Sprintf("This course has a high drop-off rate (%.0f%%). Consider trying an alternative course or reviewing prerequisites.",
			rate*100),
		Confidence:  confDropOffAvoidance,
		RuleApplied: model.RuleDropOffAvoidance,
	}
}

func buildPrerequisiteReinforcement(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypeLesson,
		TargetID:    t.PrerequisiteLesson(c),
		Title:       "Strengthen your foundation",
		Reason:      "You've started several lessons but haven't completed them. Consider reviewing prerequisite lessons to build a stronger foundation.",
		Confidence:  confPrerequisiteReinforcement,
		RuleApplied: model.RulePrerequisiteReinforcement,
	}
}

func buildExplorationBoost(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypePath,
		TargetID:    t.RelatedPath(c),
		Title:       "Explore related topics",
		Reason:      "Congratulations on completing this course! Explore a related learning path to expand your skills.",
		Confidence:  confExplorationBoost,
		RuleApplied: model.RuleExplorationBoost,
	}
}

func buildSkillDiversification(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypePath,
		TargetID:    t.ComplementaryPath(c),
		Title:       "Diversify your skills",
		Reason:      "You've made great progress on this path! Consider exploring a complementary learning path to broaden your skill set.",
		Confidence:  confSkillDiversification,
		RuleApplied: model.RuleSkillDiversification,
	}
}

func buildColdStart(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypePath,
		TargetID:    t.StarterPath(c),
		Title:       "Start your learning journey",
		Reason:      "Welcome! Begin with our most popular starter path to get started on your learning journey.",
		Confidence:  confColdStart,
		RuleApplied: model.RuleColdStart,
	}
}

func buildSafeDefault(c model.UserContext, t Targets) model.Recommendation {
	return model.Recommendation{
		Type:        model.TypeLesson,
		TargetID:    t.PathLesson(c),
		Title:       "Continue learning",
		Reason:      "Continue with the next lesson from your current learning path.",
		Confidence:  confSafeDefault,
		RuleApplied: model.RuleSafeDefault,
	}
}
