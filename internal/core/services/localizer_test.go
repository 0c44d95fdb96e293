package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

func sampleScorecard() *domain.Scorecard {
	card := &domain.Scorecard{
		SubmissionID: "sub-1",
		Locale:       "en",
		Summary:      "A balanced photo.",
		Scores: []domain.CriterionScore{
			{
				Criterion:          "composition",
				Score:              4,
				Status:             domain.CriterionScored,
				Feedback:           "Good use of the rule of thirds.",
				Suggestions:        []string{"Crop the left edge."},
				SupportingChunkIDs: []string{"c1"},
				Grounded:           true,
			},
			{
				Criterion: "lighting",
				Score:     3,
				Status:    domain.CriterionScored,
				Feedback:  "The sky is slightly overexposed.",
			},
			domain.UnavailableScore("subject", "timeout", nil, false),
		},
	}
	card.Finalise()
	return card
}

func TestLocalizer_TranslatesEachCriterion(t *testing.T) {
	l := NewLocalizer(&mockTranslator{}, "en", time.Second)
	card := sampleScorecard()

	out, err := l.Localize(context.Background(), card, "pt-BR")
	require.NoError(t, err)

	assert.Equal(t, "pt-BR", out.Locale)
	assert.Equal(t, "[pt-BR] A balanced photo.", out.Summary)
	assert.False(t, out.SummaryUntranslated)
	require.Len(t, out.Scores, 3)

	comp := out.Scores[0]
	assert.Equal(t, "[pt-BR] Good use of the rule of thirds.", comp.Feedback)
	assert.Equal(t, []string{"[pt-BR] Crop the left edge."}, comp.Suggestions)
	assert.Equal(t, "composition", comp.Criterion)
	assert.Equal(t, 4.0, comp.Score)
	assert.Equal(t, []string{"c1"}, comp.SupportingChunkIDs)
	assert.False(t, comp.Untranslated)

	// The input is not modified.
	assert.Equal(t, "Good use of the rule of thirds.", card.Scores[0].Feedback)
	assert.Equal(t, "en", card.Locale)
}

func TestLocalizer_FallbackForOneCriterion(t *testing.T) {
	l := NewLocalizer(&mockTranslator{failOn: "overexposed"}, "en", time.Second)

	out, err := l.Localize(context.Background(), sampleScorecard(), "pt-BR")
	require.NoError(t, err)

	lighting := out.Scores[1]
	assert.True(t, lighting.Untranslated)
	assert.Equal(t, "The sky is slightly overexposed.", lighting.Feedback)
	assert.Equal(t, 3.0, lighting.Score)

	for _, i := range []int{0, 2} {
		assert.False(t, out.Scores[i].Untranslated)
		assert.True(t, strings.HasPrefix(out.Scores[i].Feedback, "[pt-BR] "))
	}
	assert.Equal(t, domain.ScorecardPartial, out.Status)
}

func TestLocalizer_FailedSuggestionKeepsWholeCriterion(t *testing.T) {
	l := NewLocalizer(&mockTranslator{failOn: "Crop"}, "en", time.Second)

	out, err := l.Localize(context.Background(), sampleScorecard(), "pt-BR")
	require.NoError(t, err)

	comp := out.Scores[0]
	assert.True(t, comp.Untranslated)
	assert.Equal(t, "Good use of the rule of thirds.", comp.Feedback)
	assert.Equal(t, []string{"Crop the left edge."}, comp.Suggestions)
}

func TestLocalizer_SummaryFallback(t *testing.T) {
	l := NewLocalizer(&mockTranslator{failOn: "balanced"}, "en", time.Second)

	out, err := l.Localize(context.Background(), sampleScorecard(), "pt-BR")
	require.NoError(t, err)
	assert.True(t, out.SummaryUntranslated)
	assert.Equal(t, "A balanced photo.", out.Summary)
}

func TestLocalizer_ToSource(t *testing.T) {
	ctx := context.Background()
	l := NewLocalizer(&mockTranslator{failOn: "falha"}, "en", time.Second)

	got, err := l.ToSource(ctx, "pôr do sol na praia", "pt-BR")
	require.NoError(t, err)
	assert.Equal(t, "[en] pôr do sol na praia", got)

	got, err = l.ToSource(ctx, "sunset on the beach", "en-GB")
	require.NoError(t, err)
	assert.Equal(t, "sunset on the beach", got)

	_, err = l.ToSource(ctx, "uma falha", "pt-BR")
	assert.Error(t, err)

	_, err = l.ToSource(ctx, "nota", "!!")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewLocalizer(nil, "en", time.Second).ToSource(ctx, "nota", "pt-BR")
	assert.ErrorIs(t, err, domain.ErrTranslation)
}

func TestLocalizer_SameLanguageIsNoop(t *testing.T) {
	l := NewLocalizer(&mockTranslator{}, "en", time.Second)

	out, err := l.Localize(context.Background(), sampleScorecard(), "en-GB")
	require.NoError(t, err)
	assert.Equal(t, "Good use of the rule of thirds.", out.Scores[0].Feedback)
	assert.Equal(t, "en", out.Locale)
}

func TestLocalizer_InvalidLocale(t *testing.T) {
	l := NewLocalizer(&mockTranslator{}, "en", time.Second)
	_, err := l.Localize(context.Background(), sampleScorecard(), "not a locale!")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLocalizer_LongTextSplit(t *testing.T) {
	tr := &countingTranslator{}
	l := NewLocalizer(tr, "en", time.Second)
	l.pieceSize = 20

	card := &domain.Scorecard{Scores: []domain.CriterionScore{{
		Criterion: "composition",
		Status:    domain.CriterionScored,
		Score:     3,
		Feedback:  "one two three four five six seven eight nine ten",
	}}}
	out, err := l.Localize(context.Background(), card, "pt")
	require.NoError(t, err)
	assert.Equal(t, 3, tr.calls)
	assert.Equal(t, "ONE TWO THREE FOUR FIVE SIX SEVEN EIGHT NINE TEN", out.Scores[0].Feedback)
}

func TestSplitText(t *testing.T) {
	assert.Nil(t, SplitText("   ", 10))
	assert.Equal(t, []string{"short"}, SplitText("short", 10))
	assert.Equal(t, []string{"aaa bbb", "ccc"}, SplitText("aaa bbb ccc", 7))
	assert.Equal(t, []string{"abcdefghijkl", "x"}, SplitText("abcdefghijkl x", 5))
}

func TestSameLanguage(t *testing.T) {
	assert.True(t, SameLanguage(language.MustParse("pt"), language.MustParse("pt-BR")))
	assert.False(t, SameLanguage(language.MustParse("en"), language.MustParse("pt-BR")))
}

type countingTranslator struct {
	calls int
}

func (c *countingTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	c.calls++
	return strings.ToUpper(text), nil
}
