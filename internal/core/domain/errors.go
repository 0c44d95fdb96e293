package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source type or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmptyContent indicates a source produced no text.
	ErrEmptyContent = errors.New("empty content")

	// ErrLLMUnavailable indicates the generative model is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEnhancerUnavailable indicates no external image enhancer is configured.
	ErrEnhancerUnavailable = errors.New("image enhancer unavailable")

	// ErrIndexClosed indicates the embedding index has been closed.
	ErrIndexClosed = errors.New("index closed")

	// ErrIndexEmpty indicates a search against an index with no embeddings.
	ErrIndexEmpty = errors.New("index is empty")

	// ErrIndexLocked indicates another process holds the index lock.
	ErrIndexLocked = errors.New("index locked by another process")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// Pipeline error kinds. Typed errors below match these with errors.Is.

	// ErrIngestion indicates a source could not be read or parsed.
	ErrIngestion = errors.New("ingestion failed")

	// ErrIndexConsistency indicates orphaned or incomplete index state.
	ErrIndexConsistency = errors.New("index inconsistent")

	// ErrRetrieval indicates the index could not supply evidence.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates the generative model failed or returned junk.
	ErrGeneration = errors.New("generation failed")

	// ErrTranslation indicates a translation call failed.
	ErrTranslation = errors.New("translation failed")
)

// IngestionError reports a single source that could not be loaded.
type IngestionError struct {
	Source SourceDescriptor
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Is matches ErrIngestion.
func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }

// NewIngestionError wraps err as an IngestionError for source.
func NewIngestionError(source SourceDescriptor, err error) *IngestionError {
	return &IngestionError{Source: source, Err: err}
}

// IndexConsistencyError lists documents whose index state is incomplete
// and chunks that were orphaned or stale.
type IndexConsistencyError struct {
	// IncompleteDocuments are documents missing one or more embeddings.
	IncompleteDocuments []string

	// RemovedRecords is the number of orphaned or stale records dropped.
	RemovedRecords int
}

func (e *IndexConsistencyError) Error() string {
	var parts []string
	if n := len(e.IncompleteDocuments); n > 0 {
		parts = append(parts, fmt.Sprintf("%d incomplete documents", n))
	}
	if e.RemovedRecords > 0 {
		parts = append(parts, fmt.Sprintf("%d orphaned or stale records removed", e.RemovedRecords))
	}
	if len(parts) == 0 {
		return ErrIndexConsistency.Error()
	}
	return fmt.Sprintf("%s: %s", ErrIndexConsistency, strings.Join(parts, ", "))
}

// Is matches ErrIndexConsistency.
func (e *IndexConsistencyError) Is(target error) bool { return target == ErrIndexConsistency }

// RetrievalError reports that evidence could not be retrieved for a criterion.
type RetrievalError struct {
	Criterion string
	Err       error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve evidence for %s: %v", e.Criterion, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Is matches ErrRetrieval.
func (e *RetrievalError) Is(target error) bool { return target == ErrRetrieval }

// GenerationError reports a failed generative-model call for a criterion.
type GenerationError struct {
	Criterion string
	Attempt   int
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s (attempt %d): %v", e.Criterion, e.Attempt, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is matches ErrGeneration.
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// TranslationError reports a failed translation of one text segment.
type TranslationError struct {
	Criterion string
	Locale    string
	Err       error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate %s to %s: %v", e.Criterion, e.Locale, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Is matches ErrTranslation.
func (e *TranslationError) Is(target error) bool { return target == ErrTranslation }
