package driven

import (
	"context"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// SourceLoader extracts text from one reference source.
// Variants are selected by the descriptor's source type.
type SourceLoader interface {
	// Load reads the source into a Document with non-empty Content.
	// Failures are returned as *domain.IngestionError.
	Load(ctx context.Context, source domain.SourceDescriptor) (*domain.Document, error)

	// SourceTypes returns the source types this loader handles.
	SourceTypes() []domain.SourceType
}

// SourceCatalog enumerates the sources named by the configuration.
type SourceCatalog interface {
	// Sources lists every configured source. Directory problems are returned
	// as per-directory errors without preventing the other sources.
	Sources(ctx context.Context) ([]domain.SourceDescriptor, []*domain.IngestionError)
}
