package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestScoreBounds_Contains tests bounds checks
func TestScoreBounds_Contains(t *testing.T) {
	b := DefaultScoreBounds()

	tests := []struct {
		score float64
		want  bool
	}{
		{1, true},
		{3.5, true},
		{5, true},
		{0.5, false},
		{5.5, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Contains(tt.score), "score %v", tt.score)
	}
	assert.True(t, b.Valid())
	assert.False(t, ScoreBounds{Min: 5, Max: 5}.Valid())
}

// TestRoundHalf tests half-point rounding
func TestRoundHalf(t *testing.T) {
	assert.Equal(t, 3.5, RoundHalf(3.4))
	assert.Equal(t, 3.0, RoundHalf(3.2))
	assert.Equal(t, 4.0, RoundHalf(3.8))
}

func TestScoreBounds_Round(t *testing.T) {
	tests := []struct {
		name   string
		bounds ScoreBounds
		score  float64
		want   float64
	}{
		{name: "default", bounds: DefaultScoreBounds(), score: 3.4, want: 3.5},
		{name: "default max", bounds: DefaultScoreBounds(), score: 5, want: 5},
		{name: "min rounds inward", bounds: ScoreBounds{Min: 1.2, Max: 4.8}, score: 1.2, want: 1.5},
		{name: "max rounds inward", bounds: ScoreBounds{Min: 1.2, Max: 4.8}, score: 4.8, want: 4.5},
		{name: "inside", bounds: ScoreBounds{Min: 1.2, Max: 4.8}, score: 2.6, want: 2.5},
		{name: "no half point fits", bounds: ScoreBounds{Min: 1.1, Max: 1.4}, score: 1.3, want: 1.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.bounds.Round(tt.score)
			assert.Equal(t, tt.want, got)
			assert.True(t, tt.bounds.Contains(got))
		})
	}
}

// TestScorecard_Finalise tests status derivation
func TestScorecard_Finalise(t *testing.T) {
	scored := func(name string, score float64) CriterionScore {
		return CriterionScore{Criterion: name, Score: score, Status: CriterionScored}
	}

	t.Run("complete", func(t *testing.T) {
		sc := Scorecard{Scores: []CriterionScore{scored("a", 4), scored("b", 3)}}
		sc.Finalise()
		assert.Equal(t, ScorecardComplete, sc.Status)
		assert.Equal(t, 3.5, sc.OverallScore)
		assert.Empty(t, sc.FailureReason)
	})

	t.Run("partial", func(t *testing.T) {
		sc := Scorecard{Scores: []CriterionScore{scored("a", 4), UnavailableScore("b", "timeout", nil, true)}}
		sc.Finalise()
		assert.Equal(t, ScorecardPartial, sc.Status)
		assert.Equal(t, 4.0, sc.OverallScore)
	})

	t.Run("failed", func(t *testing.T) {
		sc := Scorecard{Scores: []CriterionScore{UnavailableScore("a", "model down", nil, false)}}
		sc.Finalise()
		assert.Equal(t, ScorecardFailed, sc.Status)
		assert.Contains(t, sc.FailureReason, "model down")
		assert.Zero(t, sc.OverallScore)
	})
}

// TestScorecard_Score tests lookup by criterion
func TestScorecard_Score(t *testing.T) {
	sc := Scorecard{Scores: []CriterionScore{{Criterion: "lighting", Score: 2, Status: CriterionScored}}}

	cs, ok := sc.Score("lighting")
	assert.True(t, ok)
	assert.Equal(t, 2.0, cs.Score)

	_, ok = sc.Score("composition")
	assert.False(t, ok)
}

// TestEnhancementToggles tests toggle helpers
func TestEnhancementToggles(t *testing.T) {
	assert.False(t, EnhancementToggles{}.Any())

	toggles := EnhancementToggles{Brightness: true, Sharpness: true}
	assert.True(t, toggles.Any())
	assert.Equal(t, []string{"brightness", "sharpness"}, toggles.Names())
}
