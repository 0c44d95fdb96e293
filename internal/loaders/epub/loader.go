// Package epub loads EPUB e-books: the container points at the package
// document, whose spine gives the reading order of the XHTML content files.
package epub

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/logger"
	"github.com/custodia-labs/lenscore/internal/normalisers/html"
	"github.com/custodia-labs/lenscore/internal/normalisers/plaintext"
)

// Ensure Loader implements the interface.
var _ driven.SourceLoader = (*Loader)(nil)

const containerPath = "META-INF/container.xml"

// maxItemBytes bounds a single decompressed spine item.
const maxItemBytes = 16 << 20

// Errors for malformed books.
var (
	ErrNoRootFile = errors.New("epub: container has no rootfile")
	ErrEmptySpine = errors.New("epub: spine is empty")
)

// Unsupported e-book formats are reported, not converted.
var unsupported = map[string]string{
	".mobi": "MOBI",
	".azw":  "Kindle AZW",
	".azw3": "Kindle AZW3",
}

type container struct {
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	Titles   []string `xml:"metadata>title"`
	Creators []string `xml:"metadata>creator"`
	Language string   `xml:"metadata>language"`
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef  string `xml:"idref,attr"`
		Linear string `xml:"linear,attr"`
	} `xml:"spine>itemref"`
}

// Loader extracts the text of EPUB books.
type Loader struct{}

// New creates an EPUB loader.
func New() *Loader {
	return &Loader{}
}

// SourceTypes returns the source types this loader handles.
func (l *Loader) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeEbook}
}

// Load reads the book's spine items in order and strips their markup.
func (l *Loader) Load(ctx context.Context, source domain.SourceDescriptor) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(source.Origin))
	if name, ok := unsupported[ext]; ok {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: %s e-books are not supported, convert to EPUB", domain.ErrUnsupportedType, name))
	}
	if ext != ".epub" {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, ext))
	}

	zr, err := zip.OpenReader(source.Origin)
	if err != nil {
		return nil, domain.NewIngestionError(source, fmt.Errorf("open epub: %w", err))
	}
	defer func() { _ = zr.Close() }()

	title, content, meta, err := read(ctx, &zr.Reader)
	if err != nil {
		return nil, domain.NewIngestionError(source, err)
	}
	if content == "" {
		return nil, domain.NewIngestionError(source, domain.ErrEmptyContent)
	}
	if title == "" {
		title = plaintext.TitleFromPath(source.Origin)
	}

	doc := domain.NewDocument(source, title, content)
	doc.Metadata["format"] = "epub"
	for k, v := range meta {
		doc.Metadata[k] = v
	}
	return &doc, nil
}

// read extracts the title, text and metadata from an opened archive.
func read(ctx context.Context, zr *zip.Reader) (string, string, map[string]any, error) {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var c container
	if err := decodeXML(files, containerPath, &c); err != nil {
		return "", "", nil, err
	}
	rootPath := ""
	for _, rf := range c.RootFiles {
		if rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml" {
			rootPath = rf.FullPath
			break
		}
	}
	if rootPath == "" {
		return "", "", nil, ErrNoRootFile
	}

	var pkg packageDoc
	if err := decodeXML(files, rootPath, &pkg); err != nil {
		return "", "", nil, err
	}
	if len(pkg.Spine) == 0 {
		return "", "", nil, ErrEmptySpine
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	types := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefs[item.ID] = item.Href
		types[item.ID] = item.MediaType
	}

	base := path.Dir(rootPath)
	var sections []string
	for _, ref := range pkg.Spine {
		if err := ctx.Err(); err != nil {
			return "", "", nil, err
		}
		href, ok := hrefs[ref.IDRef]
		if !ok {
			logger.Warn("epub: spine item %q missing from manifest", ref.IDRef)
			continue
		}
		if mt := types[ref.IDRef]; mt != "" && mt != "application/xhtml+xml" && mt != "text/html" {
			continue
		}
		name := resolve(base, href)
		raw, err := readFile(files, name)
		if err != nil {
			return "", "", nil, err
		}
		if text := html.Strip(string(raw)); text != "" {
			sections = append(sections, text)
		}
	}

	meta := map[string]any{"sections": len(sections)}
	if len(pkg.Creators) > 0 {
		meta["author"] = strings.TrimSpace(pkg.Creators[0])
	}
	if lang := strings.TrimSpace(pkg.Language); lang != "" {
		meta["language"] = lang
	}
	title := ""
	if len(pkg.Titles) > 0 {
		title = strings.TrimSpace(pkg.Titles[0])
	}
	return title, strings.Join(sections, "\n\n"), meta, nil
}

// resolve joins a manifest href to the package directory.
func resolve(base, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if base == "." {
		return path.Clean(href)
	}
	return path.Join(base, href)
}

func readFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("epub: %s: %w", name, domain.ErrNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxItemBytes))
	if err != nil {
		return nil, fmt.Errorf("epub: read %s: %w", name, err)
	}
	return data, nil
}

func decodeXML(files map[string]*zip.File, name string, v any) error {
	data, err := readFile(files, name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("epub: parse %s: %w", name, err)
	}
	return nil
}
