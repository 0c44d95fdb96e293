package driven

import "context"

// Translator translates a piece of text between locales.
type Translator interface {
	// Translate returns text rendered in the target locale.
	Translate(ctx context.Context, text, sourceLocale, targetLocale string) (string, error)
}
