// Package chunker provides a sliding-window text chunking processor.
package chunker

import (
	"context"
	"fmt"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document content into overlapping windows of runes.
// It implements the PostProcessor interface.
//
// Consecutive chunks overlap by exactly overlap characters and together
// cover the document. A trailing remainder shorter than minTail is merged
// into the last chunk (TailMerge) or emitted on its own (TailKeep), so the
// longest chunk is chunkSize+minTail-1 characters.
type Processor struct {
	chunkSize  int
	overlap    int
	minTail    int
	tailPolicy domain.TailPolicy
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinTail sets the shortest remainder emitted as its own chunk.
// Defaults to the overlap.
func WithMinTail(minTail int) Option {
	return func(p *Processor) {
		if minTail >= 0 {
			p.minTail = minTail
		}
	}
}

// WithTailPolicy selects how a short trailing remainder is handled.
func WithTailPolicy(policy domain.TailPolicy) Option {
	return func(p *Processor) {
		if policy.IsValid() {
			p.tailPolicy = policy
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		minTail:    -1,
		tailPolicy: domain.TailMerge,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	if p.minTail < 0 {
		p.minTail = p.overlap
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Fingerprint describes the settings that shape the chunks.
func (p *Processor) Fingerprint() string {
	return fmt.Sprintf("chunker:size=%d|overlap=%d|min_tail=%d|tail=%s",
		p.chunkSize, p.overlap, p.minTail, p.tailPolicy)
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// The output depends only on the content, the document id and the options.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	return Split(doc, p.chunkSize, p.overlap, p.minTail, p.tailPolicy), nil
}

// Split is the pure chunking function behind Process.
// It expects 0 <= overlap < size.
func Split(doc *domain.Document, size, overlap, minTail int, policy domain.TailPolicy) []domain.Chunk {
	runes := []rune(doc.Content)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := size - overlap
	chunks := make([]domain.Chunk, 0, n/step+1)

	for start := 0; ; start += step {
		end := start + size
		last := false
		switch {
		case end >= n:
			end, last = n, true
		case n-end < minTail && policy == domain.TailMerge:
			end, last = n, true
		}

		content := string(runes[start:end])
		position := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, position, start, end, content),
			DocumentID: doc.ID,
			Position:   position,
			Content:    content,
			Start:      start,
			End:        end,
		})

		if last {
			return chunks
		}
	}
}

// Reassemble rebuilds the text covered by consecutive chunks of one document,
// dropping each chunk's overlap with its predecessor.
func Reassemble(chunks []domain.Chunk) string {
	var out []rune
	prevEnd := 0
	for i, c := range chunks {
		r := []rune(c.Content)
		if i == 0 {
			out = append(out, r...)
		} else {
			skip := prevEnd - c.Start
			if skip < 0 || skip > len(r) {
				skip = 0
			}
			out = append(out, r[skip:]...)
		}
		prevEnd = c.End
	}
	return string(out)
}
