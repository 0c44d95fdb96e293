package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// Ensure EmbeddingIndex implements the interface.
var _ driving.EmbeddingIndex = (*EmbeddingIndex)(nil)

// DefaultEmbeddingWorkers bounds concurrent embedding calls per upsert.
const DefaultEmbeddingWorkers = 4

// DefaultEmbedBatchSize is the number of chunk texts sent in one EmbedBatch call.
const DefaultEmbedBatchSize = 32

// EmbeddingIndex keeps the persistent store and the in-memory vector index
// in step. It is the single shared mutable resource of the pipeline.
//
// Writes of one chunk are serialised by chunk id; searches never take
// those locks and run concurrently with writes.
type EmbeddingIndex struct {
	store    driven.IndexStore
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
	workers  int

	chunkLocks *keyedMutex

	mu     sync.RWMutex
	closed bool
}

// NewEmbeddingIndex creates an index over store and vectors.
// workers <= 0 uses DefaultEmbeddingWorkers.
func NewEmbeddingIndex(
	store driven.IndexStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	workers int,
) *EmbeddingIndex {
	if workers <= 0 {
		workers = DefaultEmbeddingWorkers
	}
	return &EmbeddingIndex{
		store:      store,
		vectors:    vectors,
		embedder:   embedder,
		workers:    workers,
		chunkLocks: newKeyedMutex(),
	}
}

func (x *EmbeddingIndex) checkOpen() error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return domain.ErrIndexClosed
	}
	return nil
}

// Open loads persisted embeddings into the vector index after a
// consistency scan. Orphaned and stale-model records are deleted.
// Documents with missing embeddings are reported as *domain.IndexConsistencyError;
// the index is usable and Repair fills the gaps.
func (x *EmbeddingIndex) Open(ctx context.Context) error {
	if err := x.checkOpen(); err != nil {
		return err
	}
	defer logger.Timer("index open")()

	removed, err := x.prune(ctx)
	if err != nil {
		return err
	}

	loaded := 0
	err = x.store.ScanEmbeddings(ctx, func(rec *domain.EmbeddingRecord) error {
		if err := x.vectors.Add(ctx, rec.ChunkID, rec.Vector); err != nil {
			return fmt.Errorf("load vector %s: %w", rec.ChunkID, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	logger.Info("Index opened: %d vectors loaded, %d records removed", loaded, removed)

	return x.consistency(ctx, removed)
}

// prune deletes orphaned and stale records.
func (x *EmbeddingIndex) prune(ctx context.Context) (int, error) {
	orphans, err := x.store.DeleteOrphans(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete orphans: %w", err)
	}
	stale, err := x.store.DeleteStaleEmbeddings(ctx, x.embedder.ModelName())
	if err != nil {
		return orphans, fmt.Errorf("delete stale embeddings: %w", err)
	}
	if orphans+stale > 0 {
		logger.Warn("Removed %d orphaned and %d stale index records", orphans, stale)
	}
	return orphans + stale, nil
}

// consistency reports documents whose chunks lack embeddings.
// Completeness markers of documents found whole are set.
func (x *EmbeddingIndex) consistency(ctx context.Context, removed int) error {
	docs, err := x.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	var incomplete []string
	for i := range docs {
		doc := &docs[i]
		missing, total, err := x.missingChunks(ctx, doc.ID)
		if err != nil {
			return err
		}
		whole := len(missing) == 0 && total == doc.ExpectedChunks
		if whole && !doc.Complete {
			if err := x.store.MarkComplete(ctx, doc.ID, true); err != nil {
				return fmt.Errorf("mark complete: %w", err)
			}
		}
		if !whole {
			if doc.Complete {
				if err := x.store.MarkComplete(ctx, doc.ID, false); err != nil {
					return fmt.Errorf("mark incomplete: %w", err)
				}
			}
			incomplete = append(incomplete, doc.ID)
		}
	}

	if len(incomplete) > 0 || removed > 0 {
		return &domain.IndexConsistencyError{IncompleteDocuments: incomplete, RemovedRecords: removed}
	}
	return nil
}

// missingChunks returns the stored chunks of a document that have no
// current-model embedding, and the number of stored chunks.
func (x *EmbeddingIndex) missingChunks(ctx context.Context, documentID string) ([]domain.Chunk, int, error) {
	chunks, err := x.store.ListChunks(ctx, documentID)
	if err != nil {
		return nil, 0, fmt.Errorf("list chunks: %w", err)
	}
	var missing []domain.Chunk
	for _, c := range chunks {
		rec, err := x.store.GetEmbedding(ctx, c.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			missing = append(missing, c)
		case err != nil:
			return nil, 0, fmt.Errorf("get embedding: %w", err)
		case rec.IsStale(x.embedder.ModelName()):
			missing = append(missing, c)
		}
	}
	return missing, len(chunks), nil
}

// Upsert embeds and stores a document's chunks.
//
// Chunks of an earlier version of the document that are not in chunks are
// removed first, so search never returns text the document no longer has.
// A chunk that already has a current-model record is skipped. A chunk
// whose embedding fails is reported in the result and left out of the
// vector index; the document stays incomplete until Repair succeeds.
func (x *EmbeddingIndex) Upsert(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (*domain.UpsertReport, error) {
	if err := x.checkOpen(); err != nil {
		return nil, err
	}
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("%w: document is required", domain.ErrInvalidInput)
	}
	for i := range chunks {
		if chunks[i].DocumentID != doc.ID {
			return nil, fmt.Errorf("%w: chunk %s belongs to %s", domain.ErrInvalidInput, chunks[i].ID, chunks[i].DocumentID)
		}
	}

	if err := x.dropSuperseded(ctx, doc.ID, chunks); err != nil {
		return nil, err
	}
	if err := x.store.SaveDocument(ctx, doc, len(chunks)); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := x.store.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	return x.embedAll(ctx, doc.ID, chunks, len(chunks))
}

// dropSuperseded removes stored chunks of documentID that are not in keep.
func (x *EmbeddingIndex) dropSuperseded(ctx context.Context, documentID string, keep []domain.Chunk) error {
	existing, err := x.store.ListChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	wanted := make(map[string]bool, len(keep))
	for _, c := range keep {
		wanted[c.ID] = true
	}
	var stale []string
	for _, c := range existing {
		if !wanted[c.ID] {
			stale = append(stale, c.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	for _, id := range stale {
		if err := x.vectors.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete vector %s: %w", id, err)
		}
	}
	if err := x.store.DeleteChunks(ctx, stale); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	logger.Debug("Dropped %d superseded chunks of %s", len(stale), documentID)
	return nil
}

// Repair embeds the stored chunks of a document that lack a current-model record.
func (x *EmbeddingIndex) Repair(ctx context.Context, documentID string) (*domain.UpsertReport, error) {
	if err := x.checkOpen(); err != nil {
		return nil, err
	}
	doc, err := x.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	chunks, err := x.store.ListChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return x.embedAll(ctx, documentID, chunks, doc.ExpectedChunks)
}

// embedAll embeds chunks concurrently and sets the completeness marker.
// The document is complete when no chunk failed and expected chunks are stored.
func (x *EmbeddingIndex) embedAll(
	ctx context.Context, documentID string, chunks []domain.Chunk, expected int,
) (*domain.UpsertReport, error) {
	report := &domain.UpsertReport{DocumentID: documentID}
	var mu sync.Mutex

	batched, err := x.embedBatches(ctx, chunks)
	if err != nil {
		return report, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for i := range chunks {
		chunk := chunks[i]
		g.Go(func() error {
			embedded, err := x.embedOne(gctx, &chunk, batched[chunk.ID])
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				report.Failed = append(report.Failed, domain.ChunkFailure{ChunkID: chunk.ID, Position: chunk.Position, Err: err})
				mu.Unlock()
				logger.Warn("Embedding failed for chunk %d of %s: %v", chunk.Position, documentID, err)
				return nil
			}
			mu.Lock()
			if embedded {
				report.Embedded++
			} else {
				report.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].Position < report.Failed[j].Position
	})
	complete := report.Complete() && len(chunks) == expected
	if err := x.store.MarkComplete(ctx, documentID, complete); err != nil {
		return report, fmt.Errorf("mark complete: %w", err)
	}
	return report, nil
}

// embedBatches embeds the chunks without a current-model record through
// EmbedBatch, keyed by chunk id. A batch that fails is left out; its chunks
// are embedded one by one so each failure is reported against its chunk.
func (x *EmbeddingIndex) embedBatches(ctx context.Context, chunks []domain.Chunk) (map[string][]float32, error) {
	model := x.embedder.ModelName()
	var pending []domain.Chunk
	for _, c := range chunks {
		rec, err := x.store.GetEmbedding(ctx, c.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			pending = append(pending, c)
		case err != nil:
			return nil, fmt.Errorf("get embedding: %w", err)
		case rec.IsStale(model):
			pending = append(pending, c)
		}
	}

	vectors := make(map[string][]float32, len(pending))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for start := 0; start < len(pending); start += DefaultEmbedBatchSize {
		batch := pending[start:min(start+DefaultEmbedBatchSize, len(pending))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}
			out, err := x.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Debug("Batch embedding of %d chunks failed, embedding one by one: %v", len(batch), err)
				return nil
			}
			if len(out) != len(batch) {
				logger.Debug("Batch embedding returned %d vectors for %d chunks, embedding one by one", len(out), len(batch))
				return nil
			}
			mu.Lock()
			for i, c := range batch {
				vectors[c.ID] = out[i]
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// embedOne writes the record for one chunk under its chunk lock, using
// vector when it is not empty and calling Embed otherwise.
// It reports false when a current-model record already existed.
func (x *EmbeddingIndex) embedOne(ctx context.Context, chunk *domain.Chunk, vector []float32) (bool, error) {
	unlock := x.chunkLocks.Lock(chunk.ID)
	defer unlock()

	model := x.embedder.ModelName()
	rec, err := x.store.GetEmbedding(ctx, chunk.ID)
	switch {
	case err == nil && !rec.IsStale(model):
		// Already indexed. Make sure the in-memory index has it too.
		if err := x.vectors.Add(ctx, chunk.ID, rec.Vector); err != nil {
			return false, fmt.Errorf("add vector: %w", err)
		}
		return false, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("get embedding: %w", err)
	}

	if len(vector) == 0 {
		vector, err = x.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return false, fmt.Errorf("embed: %w", err)
		}
	}
	if len(vector) == 0 {
		return false, fmt.Errorf("embed: %w", domain.ErrEmptyContent)
	}

	// Validate against the in-memory index before persisting.
	if err := x.vectors.Add(ctx, chunk.ID, vector); err != nil {
		return false, fmt.Errorf("add vector: %w", err)
	}
	err = x.store.SaveEmbedding(ctx, &domain.EmbeddingRecord{
		ChunkID:    chunk.ID,
		DocumentID: chunk.DocumentID,
		Vector:     vector,
		Model:      model,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		_ = x.vectors.Delete(ctx, chunk.ID)
		return false, fmt.Errorf("save embedding: %w", err)
	}
	return true, nil
}

// Remove deletes a document with all its chunks and embeddings.
func (x *EmbeddingIndex) Remove(ctx context.Context, documentID string) error {
	if err := x.checkOpen(); err != nil {
		return err
	}
	chunks, err := x.store.ListChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	// Vectors go first so a concurrent search cannot hit a deleted chunk row.
	for _, c := range chunks {
		if err := x.vectors.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("delete vector %s: %w", c.ID, err)
		}
	}
	if err := x.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	logger.Debug("Removed document %s (%d chunks)", documentID, len(chunks))
	return nil
}

// Search returns the top-k chunks by cosine similarity with their text and
// provenance. Hits whose rows disappeared concurrently are skipped.
func (x *EmbeddingIndex) Search(ctx context.Context, vector []float32, k int) (*domain.RetrievalResult, error) {
	if err := x.checkOpen(); err != nil {
		return nil, err
	}
	result := &domain.RetrievalResult{K: k, Hits: []domain.RetrievalHit{}}
	if k <= 0 || x.vectors.Len() == 0 {
		return result, nil
	}

	hits, err := x.vectors.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	docs := make(map[string]*domain.IndexedDocument)
	for _, h := range hits {
		chunk, err := x.store.GetChunk(ctx, h.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", h.ChunkID, err)
		}
		doc, ok := docs[chunk.DocumentID]
		if !ok {
			doc, err = x.store.GetDocument(ctx, chunk.DocumentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
			}
			docs[chunk.DocumentID] = doc
		}
		result.Hits = append(result.Hits, domain.RetrievalHit{
			ChunkID:    h.ChunkID,
			DocumentID: chunk.DocumentID,
			Similarity: h.Similarity,
			Content:    chunk.Content,
			Title:      doc.Title,
			Origin:     doc.Origin,
			SourceType: doc.SourceType,
		})
	}
	return result, nil
}

// Verify reruns the consistency scan without reloading vectors.
func (x *EmbeddingIndex) Verify(ctx context.Context) error {
	if err := x.checkOpen(); err != nil {
		return err
	}
	removed, err := x.prune(ctx)
	if err != nil {
		return err
	}
	return x.consistency(ctx, removed)
}

// Stats summarises the index.
func (x *EmbeddingIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	if err := x.checkOpen(); err != nil {
		return domain.IndexStats{}, err
	}
	docs, chunks, embeddings, err := x.store.Counts(ctx)
	if err != nil {
		return domain.IndexStats{}, err
	}
	list, err := x.store.ListDocuments(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("list documents: %w", err)
	}
	incomplete := 0
	for _, d := range list {
		if !d.Complete {
			incomplete++
		}
	}
	return domain.IndexStats{
		Documents:           docs,
		IncompleteDocuments: incomplete,
		Chunks:              chunks,
		Embeddings:          embeddings,
		Model:               x.embedder.ModelName(),
		Dimensions:          x.embedder.Dimensions(),
	}, nil
}

// Documents lists stored documents.
func (x *EmbeddingIndex) Documents(ctx context.Context) ([]domain.IndexedDocument, error) {
	if err := x.checkOpen(); err != nil {
		return nil, err
	}
	return x.store.ListDocuments(ctx)
}

// Document returns a stored document or domain.ErrNotFound.
func (x *EmbeddingIndex) Document(ctx context.Context, id string) (*domain.IndexedDocument, error) {
	if err := x.checkOpen(); err != nil {
		return nil, err
	}
	return x.store.GetDocument(ctx, id)
}

// Close flushes and releases the vector index and the store.
func (x *EmbeddingIndex) Close() error {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return nil
	}
	x.closed = true
	x.mu.Unlock()

	return errors.Join(x.vectors.Close(), x.store.Close())
}
