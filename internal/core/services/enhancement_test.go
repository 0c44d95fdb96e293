package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

func neutralAnalysis() *domain.PhotoAnalysis {
	return &domain.PhotoAnalysis{
		Width: 1200, Height: 800,
		Brightness:   120,
		Contrast:     0.5,
		Sharpness:    300,
		RuleOfThirds: 0.5,
		ColorBalance: domain.ColorBalance{Red: 1, Green: 1, Blue: 1},
	}
}

func cardWith(feedback string, suggestions ...string) *domain.Scorecard {
	return &domain.Scorecard{Scores: []domain.CriterionScore{{
		Criterion:   "lighting",
		Status:      domain.CriterionScored,
		Score:       3,
		Feedback:    feedback,
		Suggestions: suggestions,
	}}}
}

func TestPlanEnhancements_Keywords(t *testing.T) {
	tests := []struct {
		name string
		card *domain.Scorecard
		want domain.EnhancementToggles
	}{
		{
			name: "english brightness",
			card: cardWith("Nice mood.", "Increase the exposure by one stop."),
			want: domain.EnhancementToggles{Brightness: true},
		},
		{
			name: "portuguese contrast",
			card: cardWith("A imagem está um pouco plana.", "Aumentar o contraste nas sombras."),
			want: domain.EnhancementToggles{Contrast: true},
		},
		{
			name: "white balance",
			card: cardWith("The white balance is too cool, correct it towards neutral."),
			want: domain.EnhancementToggles{ColorBalance: true},
		},
		{
			name: "sharpness",
			card: cardWith("The eyes are slightly out of focus."),
			want: domain.EnhancementToggles{Sharpness: true},
		},
		{
			name: "topic without direction",
			card: cardWith("Exposure is well judged. Focus is on the subject."),
			want: domain.EnhancementToggles{},
		},
		{
			name: "unavailable criteria are ignored",
			card: &domain.Scorecard{Scores: []domain.CriterionScore{
				domain.UnavailableScore("lighting", "increase the exposure", nil, false),
			}},
			want: domain.EnhancementToggles{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanEnhancements(tt.card, neutralAnalysis()))
		})
	}
}

func TestPlanEnhancements_Metrics(t *testing.T) {
	tests := []struct {
		name   string
		modify func(a *domain.PhotoAnalysis)
		want   domain.EnhancementToggles
	}{
		{name: "neutral", modify: func(*domain.PhotoAnalysis) {}, want: domain.EnhancementToggles{}},
		{name: "dark", modify: func(a *domain.PhotoAnalysis) { a.Brightness = 50 }, want: domain.EnhancementToggles{Brightness: true}},
		{name: "bright", modify: func(a *domain.PhotoAnalysis) { a.Brightness = 200 }, want: domain.EnhancementToggles{Brightness: true}},
		{name: "flat", modify: func(a *domain.PhotoAnalysis) { a.Contrast = 0.1 }, want: domain.EnhancementToggles{Contrast: true}},
		{name: "blurry", modify: func(a *domain.PhotoAnalysis) { a.Sharpness = 20 }, want: domain.EnhancementToggles{Sharpness: true}},
		{
			name:   "colour cast",
			modify: func(a *domain.PhotoAnalysis) { a.ColorBalance.Blue = 1.3 },
			want:   domain.EnhancementToggles{ColorBalance: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := neutralAnalysis()
			tt.modify(a)
			assert.Equal(t, tt.want, PlanEnhancements(nil, a))
		})
	}
}

func TestPlanEnhancements_NilInputs(t *testing.T) {
	assert.False(t, PlanEnhancements(nil, nil).Any())
}
