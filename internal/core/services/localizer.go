package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// Localizer defaults.
const (
	DefaultTranslateTimeout = 60 * time.Second

	// DefaultPieceSize is the longest text sent in one translation call.
	DefaultPieceSize = 1000
)

// Localizer translates scorecard text into a target locale.
// Scores, criterion names and chunk references are never changed.
type Localizer struct {
	translator   driven.Translator
	sourceLocale string
	timeout      time.Duration
	pieceSize    int
}

// NewLocalizer creates a localizer for text written in sourceLocale.
func NewLocalizer(translator driven.Translator, sourceLocale string, timeout time.Duration) *Localizer {
	if sourceLocale == "" {
		sourceLocale = "en"
	}
	if timeout <= 0 {
		timeout = DefaultTranslateTimeout
	}
	return &Localizer{
		translator:   translator,
		sourceLocale: sourceLocale,
		timeout:      timeout,
		pieceSize:    DefaultPieceSize,
	}
}

// SameLanguage reports whether two locale codes share a base language.
func SameLanguage(a, b language.Tag) bool {
	ba, _ := a.Base()
	bb, _ := b.Base()
	return ba == bb
}

// Localize returns a translated copy of card. Each criterion is translated
// independently; a criterion whose translation fails keeps its source text
// and is flagged Untranslated. Only an invalid locale or cancellation is
// returned as an error.
func (l *Localizer) Localize(ctx context.Context, card *domain.Scorecard, locale string) (*domain.Scorecard, error) {
	target, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("%w: locale %q: %v", domain.ErrInvalidInput, locale, err)
	}
	source, err := language.Parse(l.sourceLocale)
	if err != nil {
		return nil, fmt.Errorf("%w: source locale %q: %v", domain.ErrInvalidInput, l.sourceLocale, err)
	}

	out := copyScorecard(card)
	if SameLanguage(source, target) {
		return out, nil
	}
	if l.translator == nil {
		return nil, fmt.Errorf("%w: no translator configured", domain.ErrTranslation)
	}
	defer logger.Timer("localization")()

	var wg sync.WaitGroup
	for i := range out.Scores {
		wg.Add(1)
		go func(cs *domain.CriterionScore) {
			defer wg.Done()
			l.localizeCriterion(ctx, cs, target.String())
		}(&out.Scores[i])
	}

	summary, err := l.translate(ctx, out.Summary, l.sourceLocale, target.String())
	if err != nil {
		logger.Warn("%v", &domain.TranslationError{Criterion: "summary", Locale: target.String(), Err: err})
		out.SummaryUntranslated = true
	} else {
		out.Summary = summary
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out.Locale = target.String()
	return out, nil
}

// ToSource translates text written in locale into the source locale.
// Text already in the source language is returned unchanged.
func (l *Localizer) ToSource(ctx context.Context, text, locale string) (string, error) {
	from, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("%w: locale %q: %v", domain.ErrInvalidInput, locale, err)
	}
	source, err := language.Parse(l.sourceLocale)
	if err != nil {
		return "", fmt.Errorf("%w: source locale %q: %v", domain.ErrInvalidInput, l.sourceLocale, err)
	}
	if SameLanguage(source, from) || strings.TrimSpace(text) == "" {
		return text, nil
	}
	if l.translator == nil {
		return "", fmt.Errorf("%w: no translator configured", domain.ErrTranslation)
	}
	return l.translate(ctx, text, from.String(), l.sourceLocale)
}

// localizeCriterion translates feedback and suggestions of one criterion,
// all or nothing.
func (l *Localizer) localizeCriterion(ctx context.Context, cs *domain.CriterionScore, target string) {
	feedback, err := l.translate(ctx, cs.Feedback, l.sourceLocale, target)
	var suggestions []string
	for _, s := range cs.Suggestions {
		if err != nil {
			break
		}
		var t string
		t, err = l.translate(ctx, s, l.sourceLocale, target)
		suggestions = append(suggestions, t)
	}
	if err != nil {
		logger.Warn("%v", &domain.TranslationError{Criterion: cs.Criterion, Locale: target, Err: err})
		cs.Untranslated = true
		return
	}
	cs.Feedback = feedback
	cs.Suggestions = suggestions
}

// translate sends text in word-bounded pieces and joins the results.
func (l *Localizer) translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	pieces := SplitText(text, l.pieceSize)
	translated := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		callCtx, cancel := context.WithTimeout(ctx, l.timeout)
		t, err := l.translator.Translate(callCtx, piece, from, to)
		cancel()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(t) == "" {
			return "", domain.ErrEmptyContent
		}
		translated = append(translated, strings.TrimSpace(t))
	}
	return strings.Join(translated, " "), nil
}

// SplitText splits text into pieces of at most size characters on word
// boundaries. A single word longer than size becomes its own piece.
func SplitText(text string, size int) []string {
	words := strings.Fields(text)
	var pieces []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > size {
			pieces = append(pieces, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}

func copyScorecard(card *domain.Scorecard) *domain.Scorecard {
	out := *card
	out.Scores = make([]domain.CriterionScore, len(card.Scores))
	for i, cs := range card.Scores {
		cs.Suggestions = append([]string(nil), cs.Suggestions...)
		cs.SupportingChunkIDs = append([]string(nil), cs.SupportingChunkIDs...)
		out.Scores[i] = cs
	}
	return &out
}
