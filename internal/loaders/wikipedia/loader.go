// Package wikipedia loads article extracts through the MediaWiki action API.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/loaders/httpfetch"
	"github.com/custodia-labs/lenscore/internal/normalisers/plaintext"
)

// Ensure Loader implements the interface.
var _ driven.SourceLoader = (*Loader)(nil)

// DefaultEndpoint is the API URL; %s is the language code.
const DefaultEndpoint = "https://%s.wikipedia.org/w/api.php"

var sectionHeading = regexp.MustCompile(`(?m)^={2,6}\s*(.*?)\s*={2,6}\s*$`)

type apiResponse struct {
	Query struct {
		Pages []struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
			Invalid bool   `json:"invalid"`
		} `json:"pages"`
		Redirects []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"redirects"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Loader fetches Wikipedia articles by topic.
type Loader struct {
	client   *httpfetch.Client
	language string
	endpoint string
}

// New creates a loader for the given language edition ("en", "pt", ...).
func New(client *httpfetch.Client, language string) *Loader {
	return NewWithEndpoint(client, language, DefaultEndpoint)
}

// NewWithEndpoint creates a loader against a custom API endpoint.
// The endpoint may contain one %s for the language code.
func NewWithEndpoint(client *httpfetch.Client, language, endpoint string) *Loader {
	if language == "" {
		language = "en"
	}
	return &Loader{client: client, language: language, endpoint: endpoint}
}

// SourceTypes returns the source types this loader handles.
func (l *Loader) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeWikipedia}
}

// Load fetches the plain-text extract of the topic's article, following redirects.
func (l *Loader) Load(ctx context.Context, source domain.SourceDescriptor) (*domain.Document, error) {
	topic := strings.TrimSpace(source.Origin)
	if topic == "" {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: empty topic", domain.ErrInvalidInput))
	}

	resp, err := l.client.Get(ctx, l.queryURL(topic), "application/json")
	if err != nil {
		return nil, domain.NewIngestionError(source, err)
	}

	var body apiResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, domain.NewIngestionError(source, fmt.Errorf("decode response: %w", err))
	}
	if body.Error != nil {
		return nil, domain.NewIngestionError(source, fmt.Errorf("api error %s: %s", body.Error.Code, body.Error.Info))
	}
	if len(body.Query.Pages) == 0 {
		return nil, domain.NewIngestionError(source, fmt.Errorf("page %q: %w", topic, domain.ErrNotFound))
	}
	page := body.Query.Pages[0]
	if page.Missing || page.Invalid {
		return nil, domain.NewIngestionError(source, fmt.Errorf("page %q: %w", topic, domain.ErrNotFound))
	}

	content := plaintext.Clean(sectionHeading.ReplaceAllString(page.Extract, "$1"))
	if content == "" {
		return nil, domain.NewIngestionError(source, domain.ErrEmptyContent)
	}

	doc := domain.NewDocument(source, page.Title, content)
	doc.Metadata["format"] = "wikipedia"
	doc.Metadata["language"] = l.language
	doc.Metadata["page_id"] = page.PageID
	if len(body.Query.Redirects) > 0 {
		doc.Metadata["redirected_from"] = body.Query.Redirects[0].From
	}
	return &doc, nil
}

func (l *Loader) queryURL(topic string) string {
	endpoint := l.endpoint
	if strings.Contains(endpoint, "%s") {
		endpoint = fmt.Sprintf(endpoint, l.language)
	}
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("formatversion", "2")
	q.Set("prop", "extracts")
	q.Set("explaintext", "1")
	q.Set("redirects", "1")
	q.Set("titles", topic)
	return endpoint + "?" + q.Encode()
}
