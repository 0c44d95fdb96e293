package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// Ensure AssessmentService implements the interface.
var _ driving.AssessmentService = (*AssessmentService)(nil)

// AssessmentConfig is the part of the configuration an assessment needs.
type AssessmentConfig struct {
	// Criteria is the ordered criterion set.
	Criteria []string

	// TopK is the number of chunks retrieved per criterion.
	TopK int

	// Locale is the default target locale.
	Locale string
}

// AssessmentService runs photo analysis, retrieval, synthesis and
// localization for one photo. It never writes to the index.
type AssessmentService struct {
	analyser    driven.PhotoAnalyser
	retriever   driving.Retriever
	synthesizer *Synthesizer
	localizer   *Localizer
	enhancer    driven.ImageEnhancer
	cfg         AssessmentConfig
}

// NewAssessmentService creates an assessment service.
// analyser, localizer and enhancer may be nil.
func NewAssessmentService(
	analyser driven.PhotoAnalyser,
	retriever driving.Retriever,
	synthesizer *Synthesizer,
	localizer *Localizer,
	enhancer driven.ImageEnhancer,
	cfg AssessmentConfig,
) *AssessmentService {
	if len(cfg.Criteria) == 0 {
		cfg.Criteria = domain.DefaultCriteria()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &AssessmentService{
		analyser:    analyser,
		retriever:   retriever,
		synthesizer: synthesizer,
		localizer:   localizer,
		enhancer:    enhancer,
		cfg:         cfg,
	}
}

// Assess scores a photo against every configured criterion.
func (s *AssessmentService) Assess(ctx context.Context, req driving.AssessRequest) (*domain.Scorecard, error) {
	if len(req.Image) == 0 && strings.TrimSpace(req.Note) == "" {
		return nil, fmt.Errorf("%w: a photo or a note is required", domain.ErrInvalidInput)
	}
	locale := req.Locale
	if locale == "" {
		locale = s.cfg.Locale
	}

	submissionID := uuid.New().String()
	logger.Section("Assessment " + submissionID)
	defer logger.Timer("assessment")()

	photo := &domain.PhotoContext{Name: req.Name, Note: s.sourceNote(ctx, req.Note, locale)}
	if len(req.Image) > 0 && s.analyser != nil {
		analysis, err := s.analyser.Analyse(ctx, req.Image)
		if err != nil {
			logger.Warn("Photo analysis failed, continuing without metrics: %v", err)
		} else {
			photo.Analysis = analysis
		}
	}

	evidence := s.retrieveAll(ctx, photo)
	card := s.synthesizer.Synthesize(ctx, photo, s.cfg.Criteria, evidence)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	card.SubmissionID = submissionID
	card.Enhancements = PlanEnhancements(card, photo.Analysis)

	if s.localizer != nil && locale != "" {
		localized, err := s.localizer.Localize(ctx, card, locale)
		if err != nil {
			return nil, err
		}
		card = localized
	}

	logger.Info("Assessment %s: %s, overall %s", submissionID, card.Status, formatScore(card.OverallScore))
	return card, nil
}

// sourceNote translates the photographer's note into the language of the
// knowledge base. The note is used as written when translation fails.
func (s *AssessmentService) sourceNote(ctx context.Context, note, locale string) string {
	if s.localizer == nil || locale == "" || strings.TrimSpace(note) == "" {
		return note
	}
	translated, err := s.localizer.ToSource(ctx, note, locale)
	if err != nil {
		logger.Warn("Note translation failed, using the note as written: %v", err)
		return note
	}
	return translated
}

// retrieveAll fetches evidence for every criterion concurrently.
func (s *AssessmentService) retrieveAll(ctx context.Context, photo *domain.PhotoContext) map[string]Evidence {
	evidence := make(map[string]Evidence, len(s.cfg.Criteria))
	if s.retriever == nil {
		for _, c := range s.cfg.Criteria {
			evidence[c] = Evidence{Err: &domain.RetrievalError{Criterion: c, Err: domain.ErrIndexClosed}}
		}
		return evidence
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, criterion := range s.cfg.Criteria {
		wg.Add(1)
		go func(criterion string) {
			defer wg.Done()
			result, err := s.retriever.Retrieve(ctx, criterion, photo, s.cfg.TopK)
			mu.Lock()
			evidence[criterion] = Evidence{Result: result, Err: err}
			mu.Unlock()
		}(criterion)
	}
	wg.Wait()
	return evidence
}

// Enhance runs the external enhancer.
func (s *AssessmentService) Enhance(ctx context.Context, image []byte, toggles domain.EnhancementToggles) ([]byte, error) {
	if s.enhancer == nil {
		return nil, domain.ErrEnhancerUnavailable
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is required", domain.ErrInvalidInput)
	}
	if !toggles.Any() {
		return image, nil
	}
	logger.Debug("Enhancing image: %s", strings.Join(toggles.Names(), ", "))
	return s.enhancer.Enhance(ctx, image, toggles)
}
