package cli

import (
	"context"
	"errors"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
)

// mockIngestionService implements driving.IngestionService for testing.
type mockIngestionService struct {
	report *domain.IngestionReport
	err    error
	calls  int
}

func (m *mockIngestionService) Ingest(_ context.Context) (*domain.IngestionReport, error) {
	m.calls++
	return m.report, m.err
}

// mockIndex implements driving.EmbeddingIndex for testing.
type mockIndex struct {
	stats     domain.IndexStats
	docs      []domain.IndexedDocument
	verifyErr error
	err       error
}

func (m *mockIndex) Open(_ context.Context) error { return m.err }

func (m *mockIndex) Upsert(_ context.Context, _ *domain.Document, _ []domain.Chunk) (*domain.UpsertReport, error) {
	return &domain.UpsertReport{}, m.err
}

func (m *mockIndex) Repair(_ context.Context, _ string) (*domain.UpsertReport, error) {
	return &domain.UpsertReport{}, m.err
}

func (m *mockIndex) Remove(_ context.Context, _ string) error { return m.err }

func (m *mockIndex) Search(_ context.Context, _ []float32, k int) (*domain.RetrievalResult, error) {
	return &domain.RetrievalResult{K: k}, m.err
}

func (m *mockIndex) Verify(_ context.Context) error { return m.verifyErr }

func (m *mockIndex) Documents(_ context.Context) ([]domain.IndexedDocument, error) {
	return m.docs, m.err
}

func (m *mockIndex) Document(_ context.Context, id string) (*domain.IndexedDocument, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockIndex) Stats(_ context.Context) (domain.IndexStats, error) { return m.stats, m.err }

func (m *mockIndex) Close() error { return nil }

// mockRetriever implements driving.Retriever for testing.
type mockRetriever struct {
	result *domain.RetrievalResult
	err    error
	photo  *domain.PhotoContext
}

func (m *mockRetriever) Retrieve(
	_ context.Context, criterion string, photo *domain.PhotoContext, k int,
) (*domain.RetrievalResult, error) {
	m.photo = photo
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{Criterion: criterion, K: k}, nil
}

// mockAssessmentService implements driving.AssessmentService for testing.
type mockAssessmentService struct {
	card       *domain.Scorecard
	err        error
	req        driving.AssessRequest
	enhanced   []byte
	enhanceErr error
	toggles    domain.EnhancementToggles
}

func (m *mockAssessmentService) Assess(_ context.Context, req driving.AssessRequest) (*domain.Scorecard, error) {
	m.req = req
	return m.card, m.err
}

func (m *mockAssessmentService) Enhance(
	_ context.Context, _ []byte, toggles domain.EnhancementToggles,
) ([]byte, error) {
	m.toggles = toggles
	return m.enhanced, m.enhanceErr
}

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	cfg     domain.Config
	loadErr error
	path    string
	written bool
	force   bool
}

func (m *mockConfigStore) Load() (domain.Config, error) { return m.cfg, m.loadErr }

func (m *mockConfigStore) Path() string { return m.path }

func (m *mockConfigStore) WriteDefault(force bool) error {
	if m.written && !force {
		return errors.New("config exists")
	}
	m.written = true
	m.force = force
	return nil
}

func testScorecard() *domain.Scorecard {
	card := &domain.Scorecard{
		SubmissionID: "sub-1",
		Locale:       "en",
		Summary:      "A well lit portrait with a centred subject.",
		Scores: []domain.CriterionScore{
			{
				Criterion:          "composition",
				Score:              4,
				Status:             domain.CriterionScored,
				Feedback:           "The subject sits in the centre.",
				Suggestions:        []string{"Place the eyes on the upper third line."},
				SupportingChunkIDs: []string{"chunk-1"},
				Grounded:           true,
			},
			domain.UnavailableScore("lighting", "model unavailable", nil, false),
		},
		Enhancements: domain.EnhancementToggles{Contrast: true},
	}
	card.Finalise()
	return card
}

// setupTestServices installs mock services and returns a restore func.
func setupTestServices() func() {
	oldIngestion := ingestionService
	oldIndex := indexService
	oldRetriever := retrieverService
	oldAssessment := assessmentService
	oldStore := configStore
	oldConfig := appConfig
	oldWatch := watchDirs
	oldPing := pingServices
	oldAnalyser := photoAnalyser
	oldVisualizer := photoVisualizer

	ingestionService = &mockIngestionService{report: &domain.IngestionReport{}}
	indexService = &mockIndex{}
	retrieverService = &mockRetriever{}
	assessmentService = &mockAssessmentService{card: testScorecard()}
	configStore = &mockConfigStore{cfg: domain.DefaultConfig(), path: "/tmp/lenscore/config.toml"}
	appConfig = domain.DefaultConfig()
	watchDirs = nil
	pingServices = nil
	photoAnalyser = nil
	photoVisualizer = nil

	return func() {
		ingestionService = oldIngestion
		indexService = oldIndex
		retrieverService = oldRetriever
		assessmentService = oldAssessment
		configStore = oldStore
		appConfig = oldConfig
		watchDirs = oldWatch
		pingServices = oldPing
		photoAnalyser = oldAnalyser
		photoVisualizer = oldVisualizer
	}
}
