package services

import (
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// enhancementRule matches feedback that asks for one adjustment.
// A rule fires when a sentence names the topic and a direction.
type enhancementRule struct {
	topics     []string
	directions []string
	set        func(*domain.EnhancementToggles)
}

// Keywords cover English and Brazilian Portuguese feedback.
var (
	changeWords = []string{
		"increase", "decrease", "more", "less", "higher", "lower", "adjust", "improve", "correct", "fix",
		"aumentar", "diminuir", "mais", "menos", "maior", "menor", "ajustar", "melhorar", "corrigir",
	}

	enhancementRules = []enhancementRule{
		{
			topics:     []string{"bright", "dark", "exposure", "illumina", "luz", "escur", "exposição", "brilho"},
			directions: append([]string{"brighter", "darker", "underexposed", "overexposed", "subexposta", "superexposta"}, changeWords...),
			set:        func(t *domain.EnhancementToggles) { t.Brightness = true },
		},
		{
			topics:     []string{"contrast", "flat", "contraste", "plano"},
			directions: append([]string{"punchier", "muddy"}, changeWords...),
			set:        func(t *domain.EnhancementToggles) { t.Contrast = true },
		},
		{
			topics: []string{
				"saturation", "vibrant", "vivid", "colorful", "white balance", "color cast", "warm", "cool", "temperature",
				"saturação", "vibrante", "colorido", "balanço de branco", "quente", "frio", "temperatura",
			},
			directions: append([]string{"warmer", "cooler", "muted", "neutral", "neutro"}, changeWords...),
			set:        func(t *domain.EnhancementToggles) { t.ColorBalance = true },
		},
		{
			topics:     []string{"sharp", "blur", "focus", "nitid", "nítid", "foco", "desfoque"},
			directions: append([]string{"sharper", "softer", "crisper", "out of focus", "fora de foco"}, changeWords...),
			set:        func(t *domain.EnhancementToggles) { t.Sharpness = true },
		},
	}
)

// PlanEnhancements derives enhancement toggles from the feedback and
// suggestions of scored criteria and from the photo metrics.
func PlanEnhancements(card *domain.Scorecard, analysis *domain.PhotoAnalysis) domain.EnhancementToggles {
	var toggles domain.EnhancementToggles

	if card != nil {
		for _, cs := range card.Scores {
			if !cs.Scored() {
				continue
			}
			for _, text := range append([]string{cs.Feedback}, cs.Suggestions...) {
				applyRules(&toggles, text)
			}
		}
	}

	if analysis != nil {
		if analysis.Brightness < domain.DarkBrightness || analysis.Brightness > domain.BrightBrightness {
			toggles.Brightness = true
		}
		if analysis.Contrast < domain.LowContrast {
			toggles.Contrast = true
		}
		if analysis.Sharpness < domain.BlurrySharpness {
			toggles.Sharpness = true
		}
		if analysis.ColorBalance.MaxDeviation() > domain.ColorCastDeviation {
			toggles.ColorBalance = true
		}
	}
	return toggles
}

func applyRules(toggles *domain.EnhancementToggles, text string) {
	for _, sentence := range sentences(strings.ToLower(text)) {
		for _, rule := range enhancementRules {
			if containsAny(sentence, rule.topics) && containsAny(sentence, rule.directions) {
				rule.set(toggles)
			}
		}
	}
}

func sentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
	})
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
