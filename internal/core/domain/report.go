package domain

import "time"

// SourceStatus tags the outcome of ingesting one source.
type SourceStatus string

// Source outcomes.
const (
	// SourceIndexed means the source was loaded and every chunk embedded.
	SourceIndexed SourceStatus = "indexed"

	// SourceUnchanged means the source content matched an already complete document.
	SourceUnchanged SourceStatus = "unchanged"

	// SourcePartial means some chunks failed to embed.
	SourcePartial SourceStatus = "partial"

	// SourceFailed means the source could not be loaded.
	SourceFailed SourceStatus = "failed"
)

// SourceReport is the ingestion outcome for one source.
type SourceReport struct {
	Source       SourceDescriptor `json:"source"`
	DocumentID   string           `json:"document_id,omitempty"`
	Title        string           `json:"title,omitempty"`
	Status       SourceStatus     `json:"status"`
	Chunks       int              `json:"chunks"`
	Embedded     int              `json:"embedded"`
	FailedChunks int              `json:"failed_chunks"`
	Error        string           `json:"error,omitempty"`
}

// IngestionReport is the per-source result of one "process documents" run.
type IngestionReport struct {
	Sources []SourceReport `json:"sources"`

	// Errors holds one IngestionError per failed source.
	Errors []*IngestionError `json:"-"`

	// Removed lists documents pruned because their source left the configuration.
	Removed []string `json:"removed,omitempty"`

	// Repaired lists incomplete documents rebuilt during this run.
	Repaired []string `json:"repaired,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Succeeded counts sources that were indexed, unchanged or partial.
func (r *IngestionReport) Succeeded() int {
	n := 0
	for _, s := range r.Sources {
		if s.Status != SourceFailed {
			n++
		}
	}
	return n
}

// Failed counts sources that could not be loaded.
func (r *IngestionReport) Failed() int {
	return len(r.Sources) - r.Succeeded()
}

// IndexedDocument is a document as recorded in the index, without its text.
type IndexedDocument struct {
	ID          string     `json:"id"`
	SourceType  SourceType `json:"source_type"`
	Origin      string     `json:"origin"`
	Title       string     `json:"title"`
	ContentHash string     `json:"content_hash"`
	RetrievedAt time.Time  `json:"retrieved_at"`
	Chunking    string     `json:"chunking"`

	// ExpectedChunks is the number of chunks the chunker produced.
	ExpectedChunks int `json:"expected_chunks"`

	// Complete is set once every chunk has a current-model embedding.
	Complete bool `json:"complete"`
}

// Descriptor returns the source descriptor of the indexed document.
func (d *IndexedDocument) Descriptor() SourceDescriptor {
	return SourceDescriptor{Type: d.SourceType, Origin: d.Origin}
}

// ChunkFailure records a chunk that could not be embedded.
type ChunkFailure struct {
	ChunkID  string `json:"chunk_id"`
	Position int    `json:"position"`
	Err      error  `json:"-"`
}

// UpsertReport is the outcome of indexing one document's chunks.
type UpsertReport struct {
	DocumentID string

	// Embedded counts chunks newly embedded and written.
	Embedded int

	// Skipped counts chunks that already had a current-model record.
	Skipped int

	// Failed lists chunks excluded from the index.
	Failed []ChunkFailure
}

// Complete reports whether every chunk is now indexed.
func (r *UpsertReport) Complete() bool {
	return len(r.Failed) == 0
}
