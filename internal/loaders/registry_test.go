package loaders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// stubLoader returns a fixed document or error.
type stubLoader struct {
	types []domain.SourceType
	doc   *domain.Document
	err   error
	calls int
}

func (s *stubLoader) SourceTypes() []domain.SourceType { return s.types }

func (s *stubLoader) Load(_ context.Context, source domain.SourceDescriptor) (*domain.Document, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.doc != nil {
		return s.doc, nil
	}
	doc := domain.NewDocument(source, "title", "content of "+source.Origin)
	return &doc, nil
}

func TestRegistry_Dispatch(t *testing.T) {
	web := &stubLoader{types: []domain.SourceType{domain.SourceTypeWeb}}
	wiki := &stubLoader{types: []domain.SourceType{domain.SourceTypeWikipedia}}
	r := NewRegistry(web, wiki)

	doc, err := r.Load(context.Background(), domain.SourceDescriptor{Type: domain.SourceTypeWikipedia, Origin: "Bokeh"})
	require.NoError(t, err)
	assert.Equal(t, "content of Bokeh", doc.Content)
	assert.Equal(t, 0, web.calls)
	assert.Equal(t, 1, wiki.calls)

	assert.Equal(t, []domain.SourceType{domain.SourceTypeWeb, domain.SourceTypeWikipedia}, r.SourceTypes())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	first := &stubLoader{types: []domain.SourceType{domain.SourceTypeText}}
	second := &stubLoader{types: []domain.SourceType{domain.SourceTypeText}}
	r := NewRegistry(first)
	r.Register(second)

	_, err := r.Load(context.Background(), domain.SourceDescriptor{Type: domain.SourceTypeText, Origin: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestRegistry_UnknownType(t *testing.T) {
	source := domain.SourceDescriptor{Type: "podcast", Origin: "episode-1"}
	_, err := NewRegistry().Load(context.Background(), source)
	require.Error(t, err)

	var ierr *domain.IngestionError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, source, ierr.Source)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_WrapsPlainErrors(t *testing.T) {
	cause := errors.New("disk on fire")
	r := NewRegistry(&stubLoader{types: []domain.SourceType{domain.SourceTypePDF}, err: cause})

	source := domain.SourceDescriptor{Type: domain.SourceTypePDF, Origin: "/a.pdf"}
	_, err := r.Load(context.Background(), source)

	var ierr *domain.IngestionError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, source, ierr.Source)
	assert.ErrorIs(t, err, cause)
}

func TestRegistry_KeepsIngestionErrors(t *testing.T) {
	source := domain.SourceDescriptor{Type: domain.SourceTypeWeb, Origin: "https://example.com"}
	original := domain.NewIngestionError(source, domain.ErrNotFound)
	r := NewRegistry(&stubLoader{types: []domain.SourceType{domain.SourceTypeWeb}, err: original})

	_, err := r.Load(context.Background(), source)
	assert.Same(t, original, err)
}

func TestRegistry_RejectsEmptyContent(t *testing.T) {
	empty := domain.NewDocument(domain.SourceDescriptor{Type: domain.SourceTypeText, Origin: "a"}, "t", "  \n")
	r := NewRegistry(&stubLoader{types: []domain.SourceType{domain.SourceTypeText}, doc: &empty})

	_, err := r.Load(context.Background(), domain.SourceDescriptor{Type: domain.SourceTypeText, Origin: "a"})
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
	assert.ErrorIs(t, err, domain.ErrIngestion)
}

func TestNewDefaultRegistry(t *testing.T) {
	cfg := domain.DefaultConfig()
	r := NewDefaultRegistry(&cfg, "lenscore-test")
	assert.Equal(t, []domain.SourceType{
		domain.SourceTypeEbook,
		domain.SourceTypePDF,
		domain.SourceTypeText,
		domain.SourceTypeWeb,
		domain.SourceTypeWikipedia,
	}, r.SourceTypes())
}
