// Package flat provides an exact in-memory cosine similarity index.
//
// Vectors are normalised on insert and spread across shards by chunk id,
// each behind its own RWMutex, so searches proceed while other shards
// are being written.
package flat

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultShards is the number of shards used when none is given.
const DefaultShards = 16

type shard struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// Index is a brute-force cosine similarity index.
type Index struct {
	shards []*shard

	mu         sync.RWMutex
	dimensions int
	closed     bool
}

// New creates an empty index. A dimensions of zero is fixed by the first Add.
func New(dimensions, shards int) *Index {
	if shards <= 0 {
		shards = DefaultShards
	}
	idx := &Index{
		shards:     make([]*shard, shards),
		dimensions: dimensions,
	}
	for i := range idx.shards {
		idx.shards[i] = &shard{vectors: make(map[string][]float32)}
	}
	return idx
}

// Dimensions returns the vector size accepted by the index.
func (i *Index) Dimensions() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.dimensions
}

func (i *Index) shardFor(chunkID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(chunkID))
	return i.shards[h.Sum32()%uint32(len(i.shards))]
}

// checkDimensions validates n against the index size, fixing it on first use.
func (i *Index) checkDimensions(n int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return domain.ErrIndexClosed
	}
	if i.dimensions == 0 {
		i.dimensions = n
		return nil
	}
	if n != i.dimensions {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, n, i.dimensions)
	}
	return nil
}

// Add inserts or replaces the vector for the given chunk ID.
func (i *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}
	if err := i.checkDimensions(len(embedding)); err != nil {
		return err
	}
	vec, ok := normalise(embedding)
	if !ok {
		return fmt.Errorf("%w: zero vector for chunk %s", domain.ErrInvalidInput, chunkID)
	}

	s := i.shardFor(chunkID)
	s.mu.Lock()
	s.vectors[chunkID] = vec
	s.mu.Unlock()
	return nil
}

// Delete removes a vector from the index. Unknown ids are ignored.
func (i *Index) Delete(_ context.Context, chunkID string) error {
	s := i.shardFor(chunkID)
	s.mu.Lock()
	delete(s.vectors, chunkID)
	s.mu.Unlock()
	return nil
}

// Search returns the k most similar vectors, ordered by non-increasing
// similarity with ties broken by ascending chunk id.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}
	i.mu.RLock()
	closed, dims := i.closed, i.dimensions
	i.mu.RUnlock()
	if closed {
		return nil, domain.ErrIndexClosed
	}
	if dims != 0 && len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(query), dims)
	}
	q, ok := normalise(query)
	if !ok {
		return nil, fmt.Errorf("%w: zero query vector", domain.ErrInvalidInput)
	}

	var hits []driven.VectorHit
	for _, s := range i.shards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.mu.RLock()
		for id, v := range s.vectors {
			hits = append(hits, driven.VectorHit{ChunkID: id, Similarity: dot(q, v)})
		}
		s.mu.RUnlock()
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].ChunkID < hits[b].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		hits = []driven.VectorHit{}
	}
	return hits, nil
}

// Contains reports whether a vector is stored for chunkID.
func (i *Index) Contains(chunkID string) bool {
	s := i.shardFor(chunkID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vectors[chunkID]
	return ok
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int {
	n := 0
	for _, s := range i.shards {
		s.mu.RLock()
		n += len(s.vectors)
		s.mu.RUnlock()
	}
	return n
}

// Close drops all vectors. Further calls fail with domain.ErrIndexClosed.
func (i *Index) Close() error {
	i.mu.Lock()
	i.closed = true
	i.mu.Unlock()
	for _, s := range i.shards {
		s.mu.Lock()
		s.vectors = make(map[string][]float32)
		s.mu.Unlock()
	}
	return nil
}

func normalise(v []float32) ([]float32, bool) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, false
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for j, x := range v {
		out[j] = float32(float64(x) / norm)
	}
	return out, true
}

func dot(a, b []float32) float64 {
	var sum float64
	for j := range a {
		sum += float64(a[j]) * float64(b[j])
	}
	return sum
}
