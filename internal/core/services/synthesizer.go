package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// Synthesis defaults.
const (
	DefaultGenerateTimeout = 60 * time.Second
	DefaultMaxTokens       = 512

	// maxAttempts is the first call plus one corrective retry.
	maxAttempts = 2
)

// SynthesizerOptions configures generation for all criteria.
type SynthesizerOptions struct {
	// Bounds is the valid score range.
	Bounds domain.ScoreBounds

	// Temperature is the sampling temperature. Keep it low.
	Temperature float64

	// MaxTokens bounds the output length of each call.
	MaxTokens int

	// Timeout bounds each generate call.
	Timeout time.Duration

	// Locale is the language the model writes in.
	Locale string
}

// Evidence is the retrieval outcome for one criterion.
type Evidence struct {
	Result *domain.RetrievalResult
	Err    error
}

// Grounded reports whether any evidence was retrieved.
func (e Evidence) Grounded() bool {
	return e.Err == nil && e.Result != nil && !e.Result.Empty()
}

// ChunkIDs returns the ids of the retrieved chunks.
func (e Evidence) ChunkIDs() []string {
	if !e.Grounded() {
		return nil
	}
	return e.Result.ChunkIDs()
}

// Synthesizer scores criteria with the generative model.
type Synthesizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	opts    SynthesizerOptions
}

// NewSynthesizer creates a synthesizer. Zero options take defaults.
func NewSynthesizer(llm driven.LLMService, prompts driven.PromptStore, opts SynthesizerOptions) *Synthesizer {
	if !opts.Bounds.Valid() {
		opts.Bounds = domain.DefaultScoreBounds()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultGenerateTimeout
	}
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	return &Synthesizer{llm: llm, prompts: prompts, opts: opts}
}

// Prompt data passed to the templates.
type (
	evidencePassage struct {
		Index   int
		Source  string
		Content string
	}

	criterionPromptData struct {
		Criterion string
		Focus     string
		Photo     string
		Evidence  []evidencePassage
		Min       float64
		Max       float64
	}

	correctivePromptData struct {
		Criterion string
		Min       float64
		Max       float64
		Previous  string
		Problem   string
	}

	summaryScore struct {
		Criterion string
		Score     float64
		Scored    bool
		Feedback  string
	}

	summaryPromptData struct {
		Photo  string
		Scores []summaryScore
		Max    float64
	}
)

// Synthesize scores every criterion in parallel and writes the summary.
// The result holds exactly one entry per criterion, in the given order.
func (s *Synthesizer) Synthesize(
	ctx context.Context, photo *domain.PhotoContext, criteria []string, evidence map[string]Evidence,
) *domain.Scorecard {
	defer logger.Timer("synthesis")()

	scores := make([]domain.CriterionScore, len(criteria))
	var wg sync.WaitGroup
	for i, criterion := range criteria {
		wg.Add(1)
		go func(i int, criterion string) {
			defer wg.Done()
			scores[i] = s.ScoreCriterion(ctx, criterion, photo, evidence[criterion])
		}(i, criterion)
	}
	wg.Wait()

	card := &domain.Scorecard{
		Scores:    scores,
		Locale:    s.opts.Locale,
		Analysis:  analysisOf(photo),
		CreatedAt: time.Now().UTC(),
	}
	card.Finalise()
	card.Summary = s.summarise(ctx, photo, card)
	return card
}

// ScoreCriterion produces the score for one criterion. Generation failures
// are retried once, with a corrective prompt when the answer was invalid;
// after that the criterion is marked unavailable.
func (s *Synthesizer) ScoreCriterion(
	ctx context.Context, criterion string, photo *domain.PhotoContext, ev Evidence,
) domain.CriterionScore {
	supporting := ev.ChunkIDs()
	grounded := ev.Grounded()
	if ev.Err != nil {
		logger.Warn("Assessing %s without evidence: %v", criterion, ev.Err)
	}

	prompt, err := s.prompts.Render(driven.PromptCriterion, s.criterionData(criterion, photo, ev))
	if err != nil {
		return domain.UnavailableScore(criterion, fmt.Sprintf("render prompt: %v", err), supporting, grounded)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := s.generate(ctx, prompt, true)
		if err != nil {
			lastErr = &domain.GenerationError{Criterion: criterion, Attempt: attempt, Err: err}
			logger.Warn("%v", lastErr)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		parsed, err := parseCriterionResponse(text, s.opts.Bounds)
		if err == nil {
			return domain.CriterionScore{
				Criterion:          criterion,
				Score:              parsed.Score,
				Status:             domain.CriterionScored,
				Feedback:           parsed.Feedback,
				Suggestions:        parsed.Suggestions,
				SupportingChunkIDs: supporting,
				Grounded:           grounded,
			}
		}
		lastErr = &domain.GenerationError{Criterion: criterion, Attempt: attempt, Err: err}
		logger.Warn("%v", lastErr)

		prompt, err = s.prompts.Render(driven.PromptCorrective, correctivePromptData{
			Criterion: criterion,
			Min:       s.opts.Bounds.Min,
			Max:       s.opts.Bounds.Max,
			Previous:  text,
			Problem:   lastErr.Error(),
		})
		if err != nil {
			lastErr = fmt.Errorf("render corrective prompt: %w", err)
			break
		}
	}

	return domain.UnavailableScore(criterion, lastErr.Error(), supporting, grounded)
}

func (s *Synthesizer) criterionData(criterion string, photo *domain.PhotoContext, ev Evidence) criterionPromptData {
	data := criterionPromptData{
		Criterion: criterion,
		Focus:     CriterionFocus(criterion),
		Photo:     photo.Describe(),
		Min:       s.opts.Bounds.Min,
		Max:       s.opts.Bounds.Max,
	}
	if ev.Grounded() {
		for i, h := range ev.Result.Hits {
			source := h.Title
			if source == "" {
				source = h.Origin
			}
			data.Evidence = append(data.Evidence, evidencePassage{Index: i + 1, Source: source, Content: h.Content})
		}
	}
	return data
}

// generate calls the model under the per-call timeout.
func (s *Synthesizer) generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	text, err := s.llm.Generate(callCtx, prompt, driven.GenerateOptions{
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
		JSON:        jsonMode,
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// summarise asks the model for an overall summary and falls back to a
// summary composed from the scores.
func (s *Synthesizer) summarise(ctx context.Context, photo *domain.PhotoContext, card *domain.Scorecard) string {
	if card.Status == domain.ScorecardFailed {
		return ComposeSummary(card, s.opts.Bounds)
	}

	data := summaryPromptData{Photo: photo.Describe(), Max: s.opts.Bounds.Max}
	for _, cs := range card.Scores {
		data.Scores = append(data.Scores, summaryScore{
			Criterion: cs.Criterion,
			Score:     cs.Score,
			Scored:    cs.Scored(),
			Feedback:  cs.Feedback,
		})
	}
	prompt, err := s.prompts.Render(driven.PromptSummary, data)
	if err != nil {
		logger.Warn("Render summary prompt: %v", err)
		return ComposeSummary(card, s.opts.Bounds)
	}
	text, err := s.generate(ctx, prompt, false)
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("Summary generation failed, using composed summary: %v", err)
		return ComposeSummary(card, s.opts.Bounds)
	}
	return strings.TrimSpace(text)
}

// ComposeSummary writes a summary from the scores alone.
func ComposeSummary(card *domain.Scorecard, bounds domain.ScoreBounds) string {
	if card.Status == domain.ScorecardFailed {
		return "The photo could not be assessed: " + card.FailureReason + "."
	}

	var best, worst *domain.CriterionScore
	var missing []string
	for i := range card.Scores {
		cs := &card.Scores[i]
		if !cs.Scored() {
			missing = append(missing, cs.Criterion)
			continue
		}
		if best == nil || cs.Score > best.Score {
			best = cs
		}
		if worst == nil || cs.Score < worst.Score {
			worst = cs
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Overall score %s of %s.", formatScore(card.OverallScore), formatScore(bounds.Max))
	if best != nil {
		fmt.Fprintf(&b, " Strongest: %s (%s).", best.Criterion, formatScore(best.Score))
	}
	if worst != nil && worst != best {
		fmt.Fprintf(&b, " Needs work: %s (%s).", worst.Criterion, formatScore(worst.Score))
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, " Not assessed: %s.", strings.Join(missing, ", "))
	}
	return b.String()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func analysisOf(photo *domain.PhotoContext) *domain.PhotoAnalysis {
	if photo == nil {
		return nil
	}
	return photo.Analysis
}
