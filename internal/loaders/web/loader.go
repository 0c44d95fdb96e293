// Package web loads article text from web pages.
package web

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/loaders/httpfetch"
	"github.com/custodia-labs/lenscore/internal/logger"
	"github.com/custodia-labs/lenscore/internal/normalisers/html"
	"github.com/custodia-labs/lenscore/internal/normalisers/markdown"
	"github.com/custodia-labs/lenscore/internal/normalisers/plaintext"
)

// Ensure Loader implements the interface.
var _ driven.SourceLoader = (*Loader)(nil)

const acceptHeader = "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5"

// Loader fetches a page and extracts its prose.
type Loader struct {
	client *httpfetch.Client
}

// New creates a web loader using the shared HTTP client.
func New(client *httpfetch.Client) *Loader {
	return &Loader{client: client}
}

// SourceTypes returns the source types this loader handles.
func (l *Loader) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeWeb}
}

// Load fetches the URL. HTML pages go through readability; when it finds
// no article the whole page is stripped of markup instead.
func (l *Loader) Load(ctx context.Context, source domain.SourceDescriptor) (*domain.Document, error) {
	u, err := url.Parse(source.Origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: not an http(s) URL", domain.ErrInvalidInput))
	}

	resp, err := l.client.Get(ctx, source.Origin, acceptHeader)
	if err != nil {
		return nil, domain.NewIngestionError(source, err)
	}

	title, content, extractor := extract(resp)
	if content == "" {
		return nil, domain.NewIngestionError(source, domain.ErrEmptyContent)
	}

	doc := domain.NewDocument(source, title, content)
	doc.Metadata["format"] = "web"
	doc.Metadata["content_type"] = resp.ContentType
	doc.Metadata["extractor"] = extractor
	if final := resp.URL.String(); final != source.Origin {
		doc.Metadata["final_url"] = final
	}
	return &doc, nil
}

// extract picks the text extractor by content type.
func extract(resp *httpfetch.Response) (title, content, extractor string) {
	body := string(resp.Body)
	switch resp.ContentType {
	case "text/plain":
		title, content = plaintext.Normalise(body, resp.URL.Path)
		return title, content, "plaintext"
	case "text/markdown", "text/x-markdown":
		title, content = markdown.Normalise(body, resp.URL.Path)
		return title, content, "markdown"
	}

	fallbackTitle, stripped := html.Normalise(body, resp.URL.Path)

	article, err := readability.FromReader(bytes.NewReader(resp.Body), resp.URL)
	if err != nil {
		logger.Debug("readability failed for %s: %v", resp.URL, err)
		return fallbackTitle, stripped, "html"
	}
	text := plaintext.Clean(article.TextContent)
	if text == "" {
		return fallbackTitle, stripped, "html"
	}
	title = strings.TrimSpace(article.Title)
	if title == "" {
		title = fallbackTitle
	}
	return title, text, "readability"
}
