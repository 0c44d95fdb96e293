package domain

import (
	"math"
	"time"
)

// CriterionStatus tags the outcome of one criterion.
type CriterionStatus string

// Criterion outcomes.
const (
	// CriterionScored means the model produced a valid score and feedback.
	CriterionScored CriterionStatus = "scored"

	// CriterionUnavailable means generation failed after the corrective retry.
	CriterionUnavailable CriterionStatus = "unavailable"
)

// ScorecardStatus tags the outcome of a whole assessment.
type ScorecardStatus string

// Scorecard outcomes.
const (
	// ScorecardComplete means every criterion was scored.
	ScorecardComplete ScorecardStatus = "complete"

	// ScorecardPartial means at least one criterion was scored and at least one was not.
	ScorecardPartial ScorecardStatus = "partial"

	// ScorecardFailed means no criterion could be scored.
	ScorecardFailed ScorecardStatus = "failed"
)

// ScoreBounds is the inclusive numeric range of a criterion score.
type ScoreBounds struct {
	Min float64
	Max float64
}

// DefaultScoreBounds is the 1 to 5 star scale.
func DefaultScoreBounds() ScoreBounds {
	return ScoreBounds{Min: 1, Max: 5}
}

// Contains reports whether score lies within the bounds.
func (b ScoreBounds) Contains(score float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return false
	}
	return score >= b.Min && score <= b.Max
}

// Valid reports whether the bounds describe a non-empty range.
func (b ScoreBounds) Valid() bool {
	return b.Min < b.Max
}

// Round rounds score to the nearest half point that lies within the bounds.
// When no half point fits between Min and Max, score is clamped instead.
func (b ScoreBounds) Round(score float64) float64 {
	lo := math.Ceil(b.Min*2) / 2
	hi := math.Floor(b.Max*2) / 2
	if lo > hi {
		return math.Min(math.Max(score, b.Min), b.Max)
	}
	return math.Min(math.Max(RoundHalf(score), lo), hi)
}

// RoundHalf rounds score to the nearest half point.
func RoundHalf(score float64) float64 {
	return math.Round(score*2) / 2
}

// CriterionScore is the assessment outcome for one criterion.
type CriterionScore struct {
	// Criterion is the configured criterion name.
	Criterion string `json:"criterion"`

	// Score is the numeric score. Zero when Status is unavailable.
	Score float64 `json:"score"`

	// Status tags the outcome.
	Status CriterionStatus `json:"status"`

	// Feedback is the textual assessment, or a placeholder when unavailable.
	Feedback string `json:"feedback"`

	// Suggestions are concrete improvement steps.
	Suggestions []string `json:"suggestions,omitempty"`

	// SupportingChunkIDs references the evidence the prompt was bounded to.
	SupportingChunkIDs []string `json:"supporting_chunk_ids,omitempty"`

	// Grounded is false when no evidence could be retrieved.
	Grounded bool `json:"grounded"`

	// Untranslated is true when localization fell back to the source text.
	Untranslated bool `json:"untranslated,omitempty"`

	// Reason explains an unavailable score.
	Reason string `json:"reason,omitempty"`
}

// Scored reports whether the criterion carries a valid score.
func (c *CriterionScore) Scored() bool {
	return c.Status == CriterionScored
}

// UnavailableScore builds the placeholder for a criterion that could not be scored.
func UnavailableScore(criterion, reason string, supporting []string, grounded bool) CriterionScore {
	return CriterionScore{
		Criterion:          criterion,
		Status:             CriterionUnavailable,
		Feedback:           "Assessment for " + criterion + " is unavailable.",
		SupportingChunkIDs: supporting,
		Grounded:           grounded,
		Reason:             reason,
	}
}

// EnhancementToggles are the named switches passed to the external enhancer.
type EnhancementToggles struct {
	Brightness   bool `json:"brightness"`
	Contrast     bool `json:"contrast"`
	ColorBalance bool `json:"color_balance"`
	Sharpness    bool `json:"sharpness"`
}

// Any reports whether at least one toggle is set.
func (t EnhancementToggles) Any() bool {
	return t.Brightness || t.Contrast || t.ColorBalance || t.Sharpness
}

// Names returns the set toggles in a fixed order.
func (t EnhancementToggles) Names() []string {
	var names []string
	if t.Brightness {
		names = append(names, "brightness")
	}
	if t.Contrast {
		names = append(names, "contrast")
	}
	if t.ColorBalance {
		names = append(names, "color_balance")
	}
	if t.Sharpness {
		names = append(names, "sharpness")
	}
	return names
}

// Scorecard is the full assessment of one submitted photo.
type Scorecard struct {
	// SubmissionID identifies the assessment request.
	SubmissionID string `json:"submission_id"`

	// Scores holds one entry per configured criterion, in configured order.
	Scores []CriterionScore `json:"scores"`

	// Summary is the overall assessment.
	Summary string `json:"summary"`

	// OverallScore is the mean of scored criteria rounded to half points.
	OverallScore float64 `json:"overall_score"`

	// Locale is the language of the feedback text.
	Locale string `json:"locale"`

	// Status tags the outcome.
	Status ScorecardStatus `json:"status"`

	// FailureReason explains a failed scorecard.
	FailureReason string `json:"failure_reason,omitempty"`

	// SummaryUntranslated is true when the summary fell back to the source text.
	SummaryUntranslated bool `json:"summary_untranslated,omitempty"`

	// Enhancements are the toggles derived from feedback and photo metrics.
	Enhancements EnhancementToggles `json:"enhancements"`

	// Analysis is the technical signal computed from the photo, if any.
	Analysis *PhotoAnalysis `json:"analysis,omitempty"`

	// CreatedAt is when the scorecard was produced.
	CreatedAt time.Time `json:"created_at"`
}

// Score returns the entry for criterion.
func (s *Scorecard) Score(criterion string) (CriterionScore, bool) {
	for _, cs := range s.Scores {
		if cs.Criterion == criterion {
			return cs, true
		}
	}
	return CriterionScore{}, false
}

// Finalise derives Status, FailureReason and OverallScore from Scores.
func (s *Scorecard) Finalise() {
	var sum float64
	scored := 0
	for _, cs := range s.Scores {
		if cs.Scored() {
			sum += cs.Score
			scored++
		}
	}

	s.OverallScore = 0
	s.FailureReason = ""
	switch {
	case len(s.Scores) > 0 && scored == len(s.Scores):
		s.Status = ScorecardComplete
	case scored > 0:
		s.Status = ScorecardPartial
	default:
		s.Status = ScorecardFailed
		s.FailureReason = "no criterion could be scored"
		if len(s.Scores) > 0 && s.Scores[0].Reason != "" {
			s.FailureReason += ": " + s.Scores[0].Reason
		}
	}
	if scored > 0 {
		s.OverallScore = RoundHalf(sum / float64(scored))
	}
}
