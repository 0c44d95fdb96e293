package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lenscore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
)

const thirdsPDF = "The rule of thirds divides the frame into a three by three grid. " +
	"Placing the subject where the grid lines cross creates tension and balance. " +
	"A centered subject often looks static. " +
	"Exposure and light direction shape the mood of a portrait."

// groundedLLM answers criterion prompts. The composition answer quotes the
// first evidence passage of its prompt.
func groundedLLM() *mockLLM {
	return &mockLLM{respond: func(_ context.Context, prompt string, _ int) (string, error) {
		if strings.HasPrefix(prompt, driven.PromptSummary) {
			return "Solid fundamentals with room to improve composition.", nil
		}
		if criterionOf(prompt) == "composition" {
			if quote := firstPassage(prompt); quote != "" {
				return `{"score": 2.5, "feedback": "The subject is centered. As the reference puts it: ` + quote + `",` +
					` "suggestions": ["Move the subject to a thirds intersection."]}`, nil
			}
		}
		return `{"score": 4, "feedback": "Well handled.", "suggestions": []}`, nil
	}}
}

// firstPassage extracts the first evidence content from a rendered prompt.
func firstPassage(prompt string) string {
	i := strings.Index(prompt, "Content:")
	if i < 0 {
		return ""
	}
	rest := prompt[i+len("Content:"):]
	if j := strings.Index(rest, "}"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

var pdfSource = domain.SourceDescriptor{Type: domain.SourceTypePDF, Origin: "data/pdfs/thirds.pdf"}

type assessFixture struct {
	store    *memory.IndexStore
	index    *EmbeddingIndex
	embedder *mockEmbedder
	llm      *mockLLM
	service  *AssessmentService
	enhancer *mockEnhancer
}

func newAssessFixture(t *testing.T, llm *mockLLM, translator driven.Translator, ingest bool) *assessFixture {
	t.Helper()
	ctx := context.Background()
	f := &assessFixture{embedder: newMockEmbedder(), llm: llm, enhancer: &mockEnhancer{}}
	f.store = memory.NewIndexStore()
	f.index = newTestIndex(t, f.store, f.embedder)

	if ingest {
		ing := newIngestFixture(t)
		ing.service.index = f.index
		ing.catalog.sources = []domain.SourceDescriptor{pdfSource}
		ing.loader.set(pdfSource.Origin, thirdsPDF)
		report, err := ing.service.Ingest(ctx)
		require.NoError(t, err)
		require.Empty(t, report.Errors)
	}

	analyser := &mockAnalyser{analysis: &domain.PhotoAnalysis{
		Width: 1200, Height: 800, AspectRatio: 1.5,
		Brightness:   60,
		Contrast:     0.5,
		Sharpness:    300,
		RuleOfThirds: 0.1,
		ColorBalance: domain.ColorBalance{Red: 1, Green: 1, Blue: 1},
		Format:       "jpeg",
	}}
	synth := NewSynthesizer(llm, mockPrompts{}, SynthesizerOptions{Timeout: 200 * time.Millisecond})
	localizer := NewLocalizer(translator, "en", time.Second)
	f.service = NewAssessmentService(analyser, NewRetriever(f.index, f.embedder), synth, localizer, f.enhancer,
		AssessmentConfig{Criteria: domain.DefaultCriteria(), TopK: 3, Locale: "en"})
	return f
}

func TestAssessment_RuleOfThirdsScenario(t *testing.T) {
	ctx := context.Background()
	f := newAssessFixture(t, groundedLLM(), &mockTranslator{}, true)

	card, err := f.service.Assess(ctx, driving.AssessRequest{Image: []byte("jpeg"), Name: "street.jpg"})
	require.NoError(t, err)

	require.Len(t, card.Scores, 5)
	bounds := domain.DefaultScoreBounds()
	for i, c := range domain.DefaultCriteria() {
		cs := card.Scores[i]
		assert.Equal(t, c, cs.Criterion)
		require.True(t, cs.Scored(), c)
		assert.True(t, bounds.Contains(cs.Score), c)
	}
	assert.Equal(t, domain.ScorecardComplete, card.Status)
	assert.NotEmpty(t, card.SubmissionID)
	assert.Equal(t, "en", card.Locale)

	composition, ok := card.Score("composition")
	require.True(t, ok)
	assert.True(t, composition.Grounded)
	require.NotEmpty(t, composition.SupportingChunkIDs)

	// The feedback quotes text from one of the supporting chunks.
	traced := false
	for _, id := range composition.SupportingChunkIDs {
		chunk, err := f.store.GetChunk(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, pdfSource.DocumentID(), chunk.DocumentID)
		if strings.Contains(composition.Feedback, strings.TrimSpace(chunk.Content)) {
			traced = true
		}
	}
	assert.True(t, traced, "composition feedback should quote a supporting chunk")
	assert.Equal(t, 2.5, composition.Score)

	// Dark photo and the suggestion both feed the enhancement plan.
	assert.True(t, card.Enhancements.Brightness)
	require.NotNil(t, card.Analysis)
	assert.Equal(t, "jpeg", card.Analysis.Format)
}

func TestAssessment_LightingTimeout(t *testing.T) {
	llm := &mockLLM{respond: func(ctx context.Context, prompt string, _ int) (string, error) {
		if strings.HasPrefix(prompt, driven.PromptSummary) {
			return "Summary.", nil
		}
		if criterionOf(prompt) == "lighting" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return `{"score": 3, "feedback": "Fine."}`, nil
	}}
	f := newAssessFixture(t, llm, &mockTranslator{}, true)

	card, err := f.service.Assess(context.Background(), driving.AssessRequest{Image: []byte("jpeg")})
	require.NoError(t, err)
	require.Len(t, card.Scores, 5)

	populated := 0
	for _, cs := range card.Scores {
		if cs.Criterion == "lighting" {
			assert.Equal(t, domain.CriterionUnavailable, cs.Status)
			continue
		}
		if cs.Scored() {
			populated++
		}
	}
	assert.Equal(t, 4, populated)
	assert.Equal(t, domain.ScorecardPartial, card.Status)
}

func TestAssessment_TranslationFallback(t *testing.T) {
	llm := &mockLLM{respond: func(_ context.Context, prompt string, _ int) (string, error) {
		if strings.HasPrefix(prompt, driven.PromptSummary) {
			return "Summary.", nil
		}
		if criterionOf(prompt) == "subject" {
			return `{"score": 3, "feedback": "The subject lacks separation."}`, nil
		}
		return `{"score": 4, "feedback": "Well handled."}`, nil
	}}
	f := newAssessFixture(t, llm, &mockTranslator{failOn: "separation"}, true)

	card, err := f.service.Assess(context.Background(), driving.AssessRequest{Image: []byte("jpeg"), Locale: "pt-BR"})
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", card.Locale)

	for _, cs := range card.Scores {
		if cs.Criterion == "subject" {
			assert.True(t, cs.Untranslated)
			assert.Equal(t, "The subject lacks separation.", cs.Feedback)
			continue
		}
		assert.False(t, cs.Untranslated, cs.Criterion)
		assert.Equal(t, "[pt-BR] Well handled.", cs.Feedback)
	}
}

func TestAssessment_TranslatesNoteBeforePrompting(t *testing.T) {
	f := newAssessFixture(t, groundedLLM(), &mockTranslator{}, true)

	_, err := f.service.Assess(context.Background(), driving.AssessRequest{Note: "retrato ao pôr do sol", Locale: "pt-BR"})
	require.NoError(t, err)
	assert.NotEmpty(t, f.llm.promptsContaining("Photographer's note: [en] retrato ao pôr do sol"))
}

func TestAssessment_UntranslatableNoteUsedAsWritten(t *testing.T) {
	f := newAssessFixture(t, groundedLLM(), &mockTranslator{failOn: "retrato"}, true)

	card, err := f.service.Assess(context.Background(), driving.AssessRequest{Note: "retrato ao pôr do sol", Locale: "pt-BR"})
	require.NoError(t, err)
	assert.Len(t, card.Scores, 5)
	assert.NotEmpty(t, f.llm.promptsContaining("Photographer's note: retrato ao pôr do sol"))
	assert.Empty(t, f.llm.promptsContaining("[en] retrato"))
}

func TestAssessment_EmptyIndexIsUngrounded(t *testing.T) {
	f := newAssessFixture(t, groundedLLM(), &mockTranslator{}, false)

	card, err := f.service.Assess(context.Background(), driving.AssessRequest{Note: "sunset over the sea"})
	require.NoError(t, err)
	require.Len(t, card.Scores, 5)
	for _, cs := range card.Scores {
		assert.False(t, cs.Grounded, cs.Criterion)
		assert.Empty(t, cs.SupportingChunkIDs)
		assert.True(t, cs.Scored())
	}
	assert.Nil(t, card.Analysis, "no image, no analysis")
}

func TestAssessment_AnalyserFailureContinues(t *testing.T) {
	f := newAssessFixture(t, groundedLLM(), &mockTranslator{}, true)
	f.service.analyser = &mockAnalyser{err: errors.New("unknown image format")}

	card, err := f.service.Assess(context.Background(), driving.AssessRequest{Image: []byte("???")})
	require.NoError(t, err)
	assert.Len(t, card.Scores, 5)
	assert.Nil(t, card.Analysis)
}

func TestAssessment_InvalidRequest(t *testing.T) {
	f := newAssessFixture(t, groundedLLM(), &mockTranslator{}, false)

	_, err := f.service.Assess(context.Background(), driving.AssessRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.service.Assess(context.Background(), driving.AssessRequest{Note: "x", Locale: "!!"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssessment_DistinctSubmissionIDs(t *testing.T) {
	f := newAssessFixture(t, groundedLLM(), &mockTranslator{}, false)
	a, err := f.service.Assess(context.Background(), driving.AssessRequest{Note: "one"})
	require.NoError(t, err)
	b, err := f.service.Assess(context.Background(), driving.AssessRequest{Note: "two"})
	require.NoError(t, err)
	assert.NotEqual(t, a.SubmissionID, b.SubmissionID)
}

func TestAssessment_Enhance(t *testing.T) {
	f := newAssessFixture(t, groundedLLM(), &mockTranslator{}, false)
	ctx := context.Background()
	toggles := domain.EnhancementToggles{Brightness: true, Sharpness: true}

	out, err := f.service.Enhance(ctx, []byte("img"), toggles)
	require.NoError(t, err)
	assert.Equal(t, []byte("enhanced:img"), out)
	assert.Equal(t, toggles, f.enhancer.toggles)

	out, err = f.service.Enhance(ctx, []byte("img"), domain.EnhancementToggles{})
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), out)

	_, err = f.service.Enhance(ctx, nil, toggles)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.service.enhancer = nil
	_, err = f.service.Enhance(ctx, []byte("img"), toggles)
	assert.ErrorIs(t, err, domain.ErrEnhancerUnavailable)
}
