package driven

import (
	"context"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// IndexStore persists documents, chunks and embedding records.
// It is the durable side of the embedding index.
type IndexStore interface {
	// SaveDocument inserts or replaces a document row, resetting Complete.
	SaveDocument(ctx context.Context, doc *domain.Document, expectedChunks int) error

	// GetDocument returns a stored document or domain.ErrNotFound.
	GetDocument(ctx context.Context, id string) (*domain.IndexedDocument, error)

	// ListDocuments returns every stored document.
	ListDocuments(ctx context.Context) ([]domain.IndexedDocument, error)

	// MarkComplete sets the completeness marker of a document.
	MarkComplete(ctx context.Context, documentID string, complete bool) error

	// DeleteDocument removes a document with its chunks and embeddings.
	DeleteDocument(ctx context.Context, id string) error

	// SaveChunks inserts chunks, ignoring ones that already exist.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk returns a chunk or domain.ErrNotFound.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListChunks returns a document's chunks ordered by position.
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteChunks removes chunks and their embeddings.
	DeleteChunks(ctx context.Context, ids []string) error

	// SaveEmbedding inserts or replaces the record for a chunk.
	SaveEmbedding(ctx context.Context, rec *domain.EmbeddingRecord) error

	// GetEmbedding returns the record for a chunk or domain.ErrNotFound.
	GetEmbedding(ctx context.Context, chunkID string) (*domain.EmbeddingRecord, error)

	// ScanEmbeddings calls fn for every stored record.
	ScanEmbeddings(ctx context.Context, fn func(rec *domain.EmbeddingRecord) error) error

	// DeleteOrphans removes chunks without a document and embeddings without a chunk.
	DeleteOrphans(ctx context.Context) (int, error)

	// DeleteStaleEmbeddings removes records produced by any model other than model.
	DeleteStaleEmbeddings(ctx context.Context, model string) (int, error)

	// Counts returns the number of documents, chunks and embeddings.
	Counts(ctx context.Context) (documents, chunks, embeddings int, err error)

	// Close flushes and releases the store.
	Close() error
}
