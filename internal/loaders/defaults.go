package loaders

import (
	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/loaders/epub"
	"github.com/custodia-labs/lenscore/internal/loaders/httpfetch"
	"github.com/custodia-labs/lenscore/internal/loaders/pdf"
	"github.com/custodia-labs/lenscore/internal/loaders/text"
	"github.com/custodia-labs/lenscore/internal/loaders/web"
	"github.com/custodia-labs/lenscore/internal/loaders/wikipedia"
)

// DefaultBurst is the request burst allowed by the shared rate limiter.
const DefaultBurst = 2

// NewDefaultRegistry registers every loader variant. The web and Wikipedia
// loaders share one HTTP client and rate limiter.
func NewDefaultRegistry(cfg *domain.Config, userAgent string) *Registry {
	client := httpfetch.New(
		httpfetch.WithTimeout(cfg.Ingest.HTTPTimeout),
		httpfetch.WithRateLimiter(httpfetch.NewRateLimiter(cfg.Ingest.RequestsPerSecond, DefaultBurst)),
		httpfetch.WithUserAgent(userAgent),
	)
	return NewRegistry(
		pdf.New(),
		epub.New(),
		web.New(client),
		wikipedia.New(client, cfg.Sources.WikipediaLanguage),
		text.New(),
	)
}
