package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceType tags the kind of reference source a loader handles.
type SourceType string

const (
	// SourceTypePDF is a PDF file in the document directory.
	SourceTypePDF SourceType = "pdf"

	// SourceTypeEbook is an e-book file (EPUB) in the e-book directory.
	SourceTypeEbook SourceType = "ebook"

	// SourceTypeWeb is a web page fetched over HTTP.
	SourceTypeWeb SourceType = "web"

	// SourceTypeWikipedia is a Wikipedia article looked up by topic.
	SourceTypeWikipedia SourceType = "wikipedia"

	// SourceTypeText is a plain text or markdown file.
	SourceTypeText SourceType = "text"
)

// SourceDescriptor identifies one source to ingest.
type SourceDescriptor struct {
	// Type selects the loader variant.
	Type SourceType `json:"type"`

	// Origin is the file path, URL or Wikipedia topic.
	Origin string `json:"origin"`
}

// String returns a human-readable form, e.g. "web:https://example.com".
func (d SourceDescriptor) String() string {
	return fmt.Sprintf("%s:%s", d.Type, d.Origin)
}

// DocumentID returns the stable document identifier for this source.
// The same descriptor always yields the same id, so re-ingestion replaces
// rather than duplicates.
func (d SourceDescriptor) DocumentID() string {
	return uuid.NewSHA1(documentNamespace, []byte(d.String())).String()
}

// Namespaces for deterministic (UUIDv5) identifiers.
var (
	documentNamespace = uuid.MustParse("7b0c3d5e-7f3a-4c59-9f0e-0a6d2f1c4e21")
	chunkNamespace    = uuid.MustParse("c1f5a9d2-43b8-4e0b-8d6a-5b2e9f7c3a10")
)

// Document represents one ingested source after text extraction.
// It is immutable once created by a loader.
type Document struct {
	// ID is the unique identifier, derived from the source descriptor.
	ID string

	// SourceType is the loader variant that produced the document.
	SourceType SourceType

	// Origin is the path, URL or topic the text came from.
	Origin string

	// Title is the human-readable title.
	Title string

	// Content is the full extracted text. Never empty after a successful load.
	Content string

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string

	// RetrievedAt is when the source was loaded.
	RetrievedAt time.Time

	// Chunking is the fingerprint of the pipeline that chunked the document.
	// Empty until ingestion sets it.
	Chunking string

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any
}

// Descriptor returns the source descriptor the document was loaded from.
func (d *Document) Descriptor() SourceDescriptor {
	return SourceDescriptor{Type: d.SourceType, Origin: d.Origin}
}

// NewDocument builds a Document for the given descriptor and content,
// filling in the id, hash and retrieval time.
func NewDocument(desc SourceDescriptor, title, content string) Document {
	return Document{
		ID:          desc.DocumentID(),
		SourceType:  desc.Type,
		Origin:      desc.Origin,
		Title:       title,
		Content:     content,
		ContentHash: HashContent(content),
		RetrievedAt: time.Now().UTC(),
		Metadata:    make(map[string]any),
	}
}

// HashContent returns the hex SHA-256 of s.
func HashContent(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Chunk represents a bounded window of a document's text.
// Consecutive chunks of one document overlap and together cover it.
type Chunk struct {
	// ID is the unique identifier, derived from the document, span and text.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Position is the ordinal position within the document.
	Position int

	// Content is the text of this chunk.
	Content string

	// Start is the rune offset of the first character in the document.
	Start int

	// End is the rune offset one past the last character.
	End int
}

// ChunkID returns the deterministic chunk id for a window of a document.
func ChunkID(documentID string, position, start, end int, content string) string {
	key := fmt.Sprintf("%s|%d|%d|%d|%s", documentID, position, start, end, HashContent(content))
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// EmbeddingRecord is the stored vector for one chunk.
type EmbeddingRecord struct {
	// ChunkID links to the embedded Chunk.
	ChunkID string

	// DocumentID links to the Chunk's parent Document.
	DocumentID string

	// Vector is the embedding. Its length is constant across the index.
	Vector []float32

	// Model identifies the embedding model that produced Vector.
	Model string

	// CreatedAt is when the record was written.
	CreatedAt time.Time
}

// IsStale reports whether the record was produced by a different model.
func (r *EmbeddingRecord) IsStale(currentModel string) bool {
	return r.Model != currentModel
}
