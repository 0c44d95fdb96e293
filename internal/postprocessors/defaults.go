package postprocessors

import (
	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/postprocessors/chunker"
)

// NewDefaultPipeline builds the ingestion pipeline from the chunking settings.
func NewDefaultPipeline(cfg domain.ChunkingConfig) *Pipeline {
	return NewPipeline(NewChunker(cfg))
}

// NewChunker creates a chunker processor from the chunking settings.
// Zero values fall back to the chunker defaults.
func NewChunker(cfg domain.ChunkingConfig) *chunker.Processor {
	var opts []chunker.Option
	if cfg.ChunkSize > 0 {
		opts = append(opts, chunker.WithChunkSize(cfg.ChunkSize))
	}
	if cfg.Overlap >= 0 {
		opts = append(opts, chunker.WithOverlap(cfg.Overlap))
	}
	if cfg.MinTail >= 0 {
		opts = append(opts, chunker.WithMinTail(cfg.MinTail))
	}
	if cfg.TailPolicy != "" {
		opts = append(opts, chunker.WithTailPolicy(cfg.TailPolicy))
	}
	return chunker.New(opts...)
}
