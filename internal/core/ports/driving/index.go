package driving

import (
	"context"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// EmbeddingIndex is the process-wide similarity-searchable store of chunk embeddings.
type EmbeddingIndex interface {
	// Open loads persisted embeddings and runs the consistency scan.
	// A *domain.IndexConsistencyError means the index is usable but has
	// incomplete documents that need repair.
	Open(ctx context.Context) error

	// Upsert embeds and stores a document's chunks. Chunks that already
	// have a current-model record are skipped. Per-chunk failures are
	// reported, not returned.
	Upsert(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (*domain.UpsertReport, error)

	// Repair embeds the stored chunks of a document that lack a record.
	Repair(ctx context.Context, documentID string) (*domain.UpsertReport, error)

	// Remove deletes a document with all its chunks and embeddings.
	Remove(ctx context.Context, documentID string) error

	// Search returns the top-k chunks by cosine similarity.
	Search(ctx context.Context, vector []float32, k int) (*domain.RetrievalResult, error)

	// Verify reruns the consistency scan.
	Verify(ctx context.Context) error

	// Documents lists the documents recorded in the index.
	Documents(ctx context.Context) ([]domain.IndexedDocument, error)

	// Document returns one recorded document or domain.ErrNotFound.
	Document(ctx context.Context, id string) (*domain.IndexedDocument, error)

	// Stats summarises the index.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Close flushes and releases the index.
	Close() error
}
