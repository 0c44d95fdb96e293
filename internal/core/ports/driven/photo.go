package driven

import (
	"context"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// PhotoAnalyser computes technical metrics from encoded image bytes.
type PhotoAnalyser interface {
	// Analyse decodes the image and measures it.
	Analyse(ctx context.Context, image []byte) (*domain.PhotoAnalysis, error)
}

// PhotoVisualizer draws the composition guides and metrics over a photo.
type PhotoVisualizer interface {
	// Visualize returns a PNG of the photo with the thirds grid and, when
	// analysis is not nil, its metrics drawn on top.
	Visualize(ctx context.Context, image []byte, analysis *domain.PhotoAnalysis) ([]byte, error)
}

// ImageEnhancer is the external, stateless enhancement operation.
type ImageEnhancer interface {
	// Enhance returns the image with the toggled adjustments applied.
	Enhance(ctx context.Context, image []byte, toggles domain.EnhancementToggles) ([]byte, error)
}
