// Package memory provides in-memory implementations of storage ports for tests
// and throwaway runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
type IndexStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.IndexedDocument
	chunks     map[string]domain.Chunk
	embeddings map[string]domain.EmbeddingRecord
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		documents:  make(map[string]domain.IndexedDocument),
		chunks:     make(map[string]domain.Chunk),
		embeddings: make(map[string]domain.EmbeddingRecord),
	}
}

// SaveDocument stores or replaces a document, resetting Complete.
func (s *IndexStore) SaveDocument(_ context.Context, doc *domain.Document, expectedChunks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = domain.IndexedDocument{
		ID:             doc.ID,
		SourceType:     doc.SourceType,
		Origin:         doc.Origin,
		Title:          doc.Title,
		ContentHash:    doc.ContentHash,
		RetrievedAt:    doc.RetrievedAt,
		Chunking:       doc.Chunking,
		ExpectedChunks: expectedChunks,
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *IndexStore) GetDocument(_ context.Context, id string) (*domain.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns every document ordered by source type and origin.
func (s *IndexStore) ListDocuments(_ context.Context) ([]domain.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.IndexedDocument, 0, len(s.documents))
	for _, d := range s.documents {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].SourceType != docs[j].SourceType {
			return docs[i].SourceType < docs[j].SourceType
		}
		return docs[i].Origin < docs[j].Origin
	})
	return docs, nil
}

// MarkComplete sets the completeness marker of a document.
func (s *IndexStore) MarkComplete(_ context.Context, documentID string, complete bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Complete = complete
	s.documents[documentID] = doc
	return nil
}

// DeleteDocument removes a document with its chunks and embeddings.
func (s *IndexStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	for cid, c := range s.chunks {
		if c.DocumentID == id {
			delete(s.chunks, cid)
		}
	}
	for cid, e := range s.embeddings {
		if e.DocumentID == id {
			delete(s.embeddings, cid)
		}
	}
	return nil
}

// SaveChunks stores chunks, ignoring ones that already exist.
func (s *IndexStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if _, ok := s.chunks[c.ID]; !ok {
			s.chunks[c.ID] = c
		}
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *IndexStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// ListChunks returns a document's chunks ordered by position.
func (s *IndexStore) ListChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteChunks removes chunks and their embeddings.
func (s *IndexStore) DeleteChunks(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.chunks, id)
		delete(s.embeddings, id)
	}
	return nil
}

// SaveEmbedding stores or replaces the record for a chunk.
func (s *IndexStore) SaveEmbedding(_ context.Context, rec *domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *rec
	r.Vector = append([]float32(nil), rec.Vector...)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.embeddings[rec.ChunkID] = r
	return nil
}

// GetEmbedding retrieves the record for a chunk.
func (s *IndexStore) GetEmbedding(_ context.Context, chunkID string) (*domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.embeddings[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

// ScanEmbeddings calls fn for every record in chunk id order.
func (s *IndexStore) ScanEmbeddings(_ context.Context, fn func(rec *domain.EmbeddingRecord) error) error {
	s.mu.RLock()
	recs := make([]domain.EmbeddingRecord, 0, len(s.embeddings))
	for _, r := range s.embeddings {
		recs = append(recs, r)
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].ChunkID < recs[j].ChunkID })
	for i := range recs {
		if err := fn(&recs[i]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteOrphans removes chunks without a document and embeddings without a chunk.
func (s *IndexStore) DeleteOrphans(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.chunks {
		if _, ok := s.documents[c.DocumentID]; !ok {
			delete(s.chunks, id)
			n++
		}
	}
	for id := range s.embeddings {
		if _, ok := s.chunks[id]; !ok {
			delete(s.embeddings, id)
			n++
		}
	}
	return n, nil
}

// DeleteStaleEmbeddings removes records produced by any other model.
func (s *IndexStore) DeleteStaleEmbeddings(_ context.Context, model string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.embeddings {
		if r.IsStale(model) {
			delete(s.embeddings, id)
			n++
		}
	}
	return n, nil
}

// Counts returns the number of documents, chunks and embeddings.
func (s *IndexStore) Counts(_ context.Context) (documents, chunks, embeddings int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), len(s.chunks), len(s.embeddings), nil
}

// Close is a no-op.
func (s *IndexStore) Close() error {
	return nil
}
