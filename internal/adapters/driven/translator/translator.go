// Package translator implements driven.Translator on top of a generative model.
package translator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure LLMTranslator implements the interface.
var _ driven.Translator = (*LLMTranslator)(nil)

// DefaultMaxTokens bounds one translated piece.
const DefaultMaxTokens = 1024

// LLMTranslator translates with the translate prompt template.
type LLMTranslator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// New creates a translator backed by llm.
func New(llm driven.LLMService, prompts driven.PromptStore) *LLMTranslator {
	return &LLMTranslator{llm: llm, prompts: prompts}
}

type promptData struct {
	Source string
	Target string
	Text   string
}

// Translate renders text in targetLocale. Surrounding quotes added by the
// model are removed.
func (t *LLMTranslator) Translate(ctx context.Context, text, sourceLocale, targetLocale string) (string, error) {
	if t.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	prompt, err := t.prompts.Render(driven.PromptTranslate, promptData{
		Source: LanguageName(sourceLocale),
		Target: LanguageName(targetLocale),
		Text:   text,
	})
	if err != nil {
		return "", fmt.Errorf("render translate prompt: %w", err)
	}

	out, err := t.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   DefaultMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if len(out) >= 2 && strings.HasPrefix(out, `"`) && strings.HasSuffix(out, `"`) && !strings.HasPrefix(text, `"`) {
		out = strings.TrimSpace(out[1 : len(out)-1])
	}
	if out == "" {
		return "", domain.ErrEmptyContent
	}
	return out, nil
}

// LanguageName returns the English name of a locale such as
// "Brazilian Portuguese" for pt-BR, or the code itself when unknown.
func LanguageName(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return locale
}
