// Package domain defines the core business entities for lenscore.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies beyond the standard library,
// github.com/google/uuid and golang.org/x/text, and defines the fundamental types:
//
//   - Document: Text extracted from one reference source
//   - Chunk: A bounded, overlapping window of a Document
//   - EmbeddingRecord: The vector stored for a Chunk
//   - RetrievalResult: Ranked evidence for one query
//   - CriterionScore / Scorecard: The assessment of a submitted photo
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend on
// domain, never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library, github.com/google/uuid, golang.org/x/text/language
//   - Cannot Import: Any internal/ package
package domain
