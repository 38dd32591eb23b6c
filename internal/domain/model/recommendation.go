package model

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the kind of learning item a recommendation points at.
type Type string

// Recommendation types.
const (
	TypeLesson Type = "LESSON"
	TypeCourse Type = "COURSE"
	TypePath   Type = "PATH"
)

// RuleTag identifies the rule that produced a recommendation.
type RuleTag string

// Rule tags in priority order, followed by the fallback sentinel.
const (
	RuleResumeIncomplete          RuleTag = "RESUME_INCOMPLETE"
	RuleSequentialProgress        RuleTag = "SEQUENTIAL_PROGRESS"
	RulePathContinuation          RuleTag = "PATH_CONTINUATION"
	RuleInactivityNudge           RuleTag = "INACTIVITY_NUDGE"
	RuleConsistencyReinforcement  RuleTag = "CONSISTENCY_REINFORCEMENT"
	RuleBingeControl              RuleTag = "BINGE_CONTROL"
	RuleDropOffAvoidance          RuleTag = "DROPOFF_AVOIDANCE"
	RulePrerequisiteReinforcement RuleTag = "PREREQUISITE_REINFORCEMENT"
	RuleExplorationBoost          RuleTag = "EXPLORATION_BOOST"
	RuleSkillDiversification      RuleTag = "SKILL_DIVERSIFICATION"
	RuleColdStart                 RuleTag = "COLD_START"
	RuleSafeDefault               RuleTag = "SAFE_DEFAULT"

	// RuleFallback marks the fixed recommendation substituted when no rule
	// matched or the decision cycle failed.
	RuleFallback RuleTag = "FALLBACK"
)

// Fallback recommendation content.
const (
	FallbackTargetID   = "starter-lesson-1"
	FallbackTitle      = "Start learning"
	FallbackReason     = "Begin your learning journey with this starter lesson."
	FallbackConfidence = 0.30
)

// ErrInvalidRecommendation reports a recommendation that fails Validate.
var ErrInvalidRecommendation = errors.New("invalid recommendation")

// Recommendation is the single next learning action returned for a user.
type Recommendation struct {
	Type        Type    `json:"type"`
	TargetID    string  `json:"targetId"`
	Title       string  `json:"title"`
	Reason      string  `json:"reason"`
	Confidence  float64 `json:"confidence"`
	RuleApplied RuleTag `json:"ruleApplied"`
}

// Fallback returns the fixed low-confidence starter recommendation.
func Fallback() Recommendation {
	return Recommendation{
		Type:        TypeLesson,
		TargetID:    FallbackTargetID,
		Title:       FallbackTitle,
		Reason:      FallbackReason,
		Confidence:  FallbackConfidence,
		RuleApplied: RuleFallback,
	}
}

// IsFallback reports whether r was substituted rather than computed by a rule.
func (r Recommendation) IsFallback() bool {
	return r.RuleApplied == RuleFallback
}

// Validate checks the shape every returned recommendation has.
func (r Recommendation) Validate() error {
	switch r.Type {
	case TypeLesson, TypeCourse, TypePath:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecommendation, r.Type)
	}
	if strings.TrimSpace(r.TargetID) == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidRecommendation)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidRecommendation, r.Confidence)
	}
	if !r.RuleApplied.Known() {
		return fmt.Errorf("%w: unknown rule %q", ErrInvalidRecommendation, r.RuleApplied)
	}
	return nil
}

// Known reports whether t is one of the defined rule tags.
func (t RuleTag) Known() bool {
	switch t {
	case RuleResumeIncomplete, RuleSequentialProgress, RulePathContinuation,
		RuleInactivityNudge, RuleConsistencyReinforcement, RuleBingeControl,
		RuleDropOffAvoidance, RulePrerequisiteReinforcement, RuleExplorationBoost,
		RuleSkillDiversification, RuleColdStart, RuleSafeDefault, RuleFallback:
		return true
	}
	return false
}
