package driving

import (
	"context"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// IngestionService runs "process documents" over the configured sources.
type IngestionService interface {
	// Ingest loads, chunks and indexes every configured source.
	// Source failures are reported in the result, never returned as err.
	Ingest(ctx context.Context) (*domain.IngestionReport, error)
}
