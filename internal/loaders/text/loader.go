// Package text loads plain text and Markdown notes from the document directories.
package text

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/normalisers/markdown"
	"github.com/custodia-labs/lenscore/internal/normalisers/plaintext"
)

// Ensure Loader implements the interface.
var _ driven.SourceLoader = (*Loader)(nil)

// MaxFileSize bounds the text files read into memory.
const MaxFileSize = 32 << 20

// Extensions lists the file extensions this loader reads.
var Extensions = []string{".txt", ".text", ".md", ".markdown"}

// Loader reads text files.
type Loader struct{}

// New creates a text loader.
func New() *Loader {
	return &Loader{}
}

// SourceTypes returns the source types this loader handles.
func (l *Loader) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeText}
}

// Load reads the file; Markdown files are stripped of formatting.
func (l *Loader) Load(_ context.Context, source domain.SourceDescriptor) (*domain.Document, error) {
	info, err := os.Stat(source.Origin)
	if err != nil {
		return nil, domain.NewIngestionError(source, err)
	}
	if info.IsDir() {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: is a directory", domain.ErrInvalidInput))
	}
	if info.Size() > MaxFileSize {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, MaxFileSize))
	}

	data, err := os.ReadFile(source.Origin)
	if err != nil {
		return nil, domain.NewIngestionError(source, err)
	}
	if !utf8.Valid(data) {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: not valid UTF-8 text", domain.ErrUnsupportedType))
	}

	var title, content, format string
	switch strings.ToLower(filepath.Ext(source.Origin)) {
	case ".md", ".markdown":
		title, content = markdown.Normalise(string(data), source.Origin)
		format = "markdown"
	default:
		title, content = plaintext.Normalise(string(data), source.Origin)
		format = "plaintext"
	}
	if content == "" {
		return nil, domain.NewIngestionError(source, domain.ErrEmptyContent)
	}

	doc := domain.NewDocument(source, title, content)
	doc.Metadata["format"] = format
	return &doc, nil
}

// Supported reports whether path has a text extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
