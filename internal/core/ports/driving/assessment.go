package driving

import (
	"context"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// AssessRequest is one photo submitted for assessment.
type AssessRequest struct {
	// Image is the encoded photo. May be empty when only a note is given.
	Image []byte

	// Name is the file name or label of the photo.
	Name string

	// Note is an optional description from the photographer.
	Note string

	// Locale overrides the configured target locale.
	Locale string
}

// AssessmentService scores photos against the configured criteria.
type AssessmentService interface {
	// Assess returns a scorecard with one entry per configured criterion.
	// Only invalid requests produce an error; model failures are reported
	// inside the scorecard.
	Assess(ctx context.Context, req AssessRequest) (*domain.Scorecard, error)

	// Enhance runs the external enhancer with the given toggles.
	Enhance(ctx context.Context, image []byte, toggles domain.EnhancementToggles) ([]byte, error)
}

// Retriever finds evidence for one criterion.
type Retriever interface {
	// Retrieve returns the top-k chunks for a criterion and photo.
	// It is read-only and safe for concurrent use.
	Retrieve(ctx context.Context, criterion string, photo *domain.PhotoContext, k int) (*domain.RetrievalResult, error)
}
