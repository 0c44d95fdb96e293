package driven

import "context"

// VectorIndex provides semantic similarity search operations.
// It holds only the vectors; chunk text and provenance live in the IndexStore.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given chunk ID.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete removes a vector from the index. Unknown ids are ignored.
	Delete(ctx context.Context, chunkID string) error

	// Search finds the k nearest neighbours to the query vector, ordered by
	// non-increasing similarity with ties broken by ascending chunk id.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (-1 to 1).
	Similarity float64
}
