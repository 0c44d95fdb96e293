package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSourceDescriptor_DocumentIDStable tests that ids depend only on the descriptor
func TestSourceDescriptor_DocumentIDStable(t *testing.T) {
	a := SourceDescriptor{Type: SourceTypeWeb, Origin: "https://example.com/thirds"}
	b := SourceDescriptor{Type: SourceTypeWeb, Origin: "https://example.com/thirds"}
	c := SourceDescriptor{Type: SourceTypeWikipedia, Origin: "https://example.com/thirds"}

	assert.Equal(t, a.DocumentID(), b.DocumentID())
	assert.NotEqual(t, a.DocumentID(), c.DocumentID())
	assert.Equal(t, "web:https://example.com/thirds", a.String())
}

// TestNewDocument tests document construction
func TestNewDocument(t *testing.T) {
	desc := SourceDescriptor{Type: SourceTypePDF, Origin: "/data/pdfs/thirds.pdf"}
	doc := NewDocument(desc, "Thirds", "The rule of thirds.")

	assert.Equal(t, desc.DocumentID(), doc.ID)
	assert.Equal(t, SourceTypePDF, doc.SourceType)
	assert.Equal(t, "Thirds", doc.Title)
	assert.Equal(t, HashContent("The rule of thirds."), doc.ContentHash)
	assert.False(t, doc.RetrievedAt.IsZero())
	require.NotNil(t, doc.Metadata)
	assert.Equal(t, desc, doc.Descriptor())
}

// TestChunkID_Deterministic tests chunk ids
func TestChunkID_Deterministic(t *testing.T) {
	id1 := ChunkID("doc", 0, 0, 10, "0123456789")
	id2 := ChunkID("doc", 0, 0, 10, "0123456789")
	id3 := ChunkID("doc", 1, 0, 10, "0123456789")
	id4 := ChunkID("doc", 0, 0, 10, "012345678x")

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	assert.NotEqual(t, id1, id4)
}

// TestEmbeddingRecord_IsStale tests model staleness
func TestEmbeddingRecord_IsStale(t *testing.T) {
	rec := EmbeddingRecord{Model: "nomic-embed-text"}
	assert.False(t, rec.IsStale("nomic-embed-text"))
	assert.True(t, rec.IsStale("mxbai-embed-large"))
}
