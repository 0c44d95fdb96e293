package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// DefaultTopK is the number of chunks retrieved per criterion when none is given.
const DefaultTopK = 5

// criterionFocus maps the built-in criteria to retrieval phrases.
var criterionFocus = map[string]string{
	"composition":       "composition rule of thirds framing leading lines balance",
	"lighting":          "lighting exposure light direction shadows highlights",
	"subject":           "subject emphasis focal point storytelling",
	"technical_quality": "technical quality focus sharpness noise white balance",
	"creativity":        "creativity originality perspective visual style",
}

// CriterionFocus returns the retrieval phrase for a criterion.
// Unknown criteria use their own name.
func CriterionFocus(criterion string) string {
	if focus, ok := criterionFocus[criterion]; ok {
		return focus
	}
	return strings.ReplaceAll(criterion, "_", " ")
}

// Retriever turns a criterion and photo context into a query and searches
// the embedding index. It never writes to the index.
type Retriever struct {
	index    driving.EmbeddingIndex
	embedder driven.EmbeddingService
}

// NewRetriever creates a retriever over index.
func NewRetriever(index driving.EmbeddingIndex, embedder driven.EmbeddingService) *Retriever {
	return &Retriever{index: index, embedder: embedder}
}

// BuildQuery composes the query text for a criterion.
func BuildQuery(criterion string, photo *domain.PhotoContext) string {
	var b strings.Builder
	b.WriteString("Photography ")
	b.WriteString(CriterionFocus(criterion))
	b.WriteString(".")
	if aspects := photo.Aspects(); len(aspects) > 0 {
		b.WriteString(" The photo is ")
		b.WriteString(strings.Join(aspects, ", "))
		b.WriteString(".")
	}
	if photo != nil && strings.TrimSpace(photo.Note) != "" {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(photo.Note))
	}
	return b.String()
}

// Retrieve returns the top-k chunks for a criterion. k <= 0 uses DefaultTopK.
// Failures and an empty index are returned as *domain.RetrievalError.
func (r *Retriever) Retrieve(
	ctx context.Context, criterion string, photo *domain.PhotoContext, k int,
) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(criterion) == "" {
		return nil, fmt.Errorf("%w: criterion is required", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultTopK
	}
	if r.embedder == nil {
		return nil, &domain.RetrievalError{Criterion: criterion, Err: domain.ErrEmbeddingUnavailable}
	}

	query := BuildQuery(criterion, photo)
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.RetrievalError{Criterion: criterion, Err: fmt.Errorf("embed query: %w", err)}
	}

	result, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, &domain.RetrievalError{Criterion: criterion, Err: err}
	}
	result.Query = query
	result.Criterion = criterion
	if result.Empty() {
		return result, &domain.RetrievalError{Criterion: criterion, Err: domain.ErrIndexEmpty}
	}

	logger.Debug("Retrieved %d chunks for %s", len(result.Hits), criterion)
	return result, nil
}
