// Package postprocessors provides document content processing implementations.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains multiple PostProcessors and runs them in order.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all processors in order.
// The first processor receives nil chunks and should create them.
// The final chunks are checked to belong to doc with ordered, gap-free spans.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	var chunks []domain.Chunk

	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	if err := checkSpans(doc, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// checkSpans rejects chunk sets that would leave gaps in the index.
func checkSpans(doc *domain.Document, chunks []domain.Chunk) error {
	prevEnd := 0
	for i, c := range chunks {
		if c.DocumentID != doc.ID {
			return fmt.Errorf("chunk %d belongs to document %s, want %s", i, c.DocumentID, doc.ID)
		}
		if c.Position != i {
			return fmt.Errorf("chunk %d has position %d", i, c.Position)
		}
		if c.Start > prevEnd || c.End <= c.Start {
			return fmt.Errorf("chunk %d has span [%d,%d) after %d", i, c.Start, c.End, prevEnd)
		}
		prevEnd = c.End
	}
	return nil
}

// fingerprinter is implemented by processors whose output depends on settings.
type fingerprinter interface {
	Fingerprint() string
}

// Fingerprint joins the fingerprints of the processors in order.
// A processor without settings contributes its name.
func (p *Pipeline) Fingerprint() string {
	parts := make([]string, 0, len(p.processors))
	for _, processor := range p.processors {
		if f, ok := processor.(fingerprinter); ok {
			parts = append(parts, f.Fingerprint())
			continue
		}
		parts = append(parts, processor.Name())
	}
	return strings.Join(parts, ";")
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
