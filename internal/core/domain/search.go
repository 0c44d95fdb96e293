package domain

// RetrievalHit is one ranked chunk with its provenance.
type RetrievalHit struct {
	// ChunkID is the matched chunk.
	ChunkID string `json:"chunk_id"`

	// DocumentID is the chunk's parent document.
	DocumentID string `json:"document_id"`

	// Similarity is the cosine similarity to the query.
	Similarity float64 `json:"similarity"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Title is the parent document's title.
	Title string `json:"title"`

	// Origin is the parent document's path, URL or topic.
	Origin string `json:"origin"`

	// SourceType is the parent document's source type.
	SourceType SourceType `json:"source_type"`
}

// RetrievalResult is the ranked evidence for one query.
// Hits are ordered by non-increasing similarity, ties broken by chunk id,
// and never exceed K entries.
type RetrievalResult struct {
	// Query is the text the query vector was computed from.
	Query string `json:"query"`

	// Criterion is the criterion the query was built for, if any.
	Criterion string `json:"criterion,omitempty"`

	// K is the requested maximum number of hits.
	K int `json:"k"`

	// Hits are the ranked chunks.
	Hits []RetrievalHit `json:"hits"`
}

// ChunkIDs returns the ids of all hits in rank order.
func (r *RetrievalResult) ChunkIDs() []string {
	ids := make([]string, len(r.Hits))
	for i := range r.Hits {
		ids[i] = r.Hits[i].ChunkID
	}
	return ids
}

// Empty reports whether the result carries no evidence.
func (r *RetrievalResult) Empty() bool {
	return len(r.Hits) == 0
}

// IndexStats summarises the contents of the embedding index.
type IndexStats struct {
	Documents           int    `json:"documents"`
	IncompleteDocuments int    `json:"incomplete_documents"`
	Chunks              int    `json:"chunks"`
	Embeddings          int    `json:"embeddings"`
	Model               string `json:"model"`
	Dimensions          int    `json:"dimensions"`
}
