package loaders

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/loaders/text"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// Ensure Catalog implements the interface.
var _ driven.SourceCatalog = (*Catalog)(nil)

// ebookExtensions are listed as e-books. Only EPUB loads; the others are
// reported as unsupported so the user sees them.
var ebookExtensions = map[string]bool{
	".epub": true,
	".mobi": true,
	".azw":  true,
	".azw3": true,
}

// Catalog expands the configured sources into descriptors.
type Catalog struct {
	cfg *domain.Config
}

// NewCatalog creates a catalog over the configuration snapshot.
func NewCatalog(cfg *domain.Config) *Catalog {
	return &Catalog{cfg: cfg}
}

// Directories returns the configured document directories that exist.
func (c *Catalog) Directories() []string {
	var dirs []string
	for _, dir := range []string{c.cfg.Sources.PDFDirectory, c.cfg.Sources.EbookDirectory} {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Sources lists every configured source in a stable order. A directory that
// cannot be read is reported as an error for its source type.
func (c *Catalog) Sources(ctx context.Context) ([]domain.SourceDescriptor, []*domain.IngestionError) {
	var (
		out  []domain.SourceDescriptor
		errs []*domain.IngestionError
		seen = make(map[domain.SourceDescriptor]bool)
	)
	add := func(d domain.SourceDescriptor) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}

	dirs := []struct {
		path string
		typ  domain.SourceType
		ok   func(ext string) bool
	}{
		{c.cfg.Sources.PDFDirectory, domain.SourceTypePDF, func(ext string) bool { return ext == ".pdf" }},
		{c.cfg.Sources.EbookDirectory, domain.SourceTypeEbook, func(ext string) bool { return ebookExtensions[ext] }},
	}
	for _, dir := range dirs {
		if dir.path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, domain.NewIngestionError(domain.SourceDescriptor{Type: dir.typ, Origin: dir.path}, err))
			continue
		}
		found, err := walk(dir.path, dir.typ, dir.ok)
		if err != nil {
			errs = append(errs, domain.NewIngestionError(domain.SourceDescriptor{Type: dir.typ, Origin: dir.path}, err))
			continue
		}
		for _, d := range found {
			add(d)
		}
	}

	for _, d := range c.cfg.RemoteSources() {
		d.Origin = strings.TrimSpace(d.Origin)
		if d.Origin != "" {
			add(d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Origin < out[j].Origin
	})
	return out, errs
}

// walk lists the files under root. Files accepted by ok get typ; text and
// Markdown files become text sources. Hidden files are skipped.
func walk(root string, typ domain.SourceType, ok func(ext string) bool) ([]domain.SourceDescriptor, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	var out []domain.SourceDescriptor
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case ok(ext):
			out = append(out, domain.SourceDescriptor{Type: typ, Origin: path})
		case text.Supported(name):
			out = append(out, domain.SourceDescriptor{Type: domain.SourceTypeText, Origin: path})
		default:
			logger.Debug("Skipping %s (unrecognised extension)", path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	return out, nil
}
