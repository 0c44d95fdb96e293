package mcp

import (
	"context"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	result    *domain.RetrievalResult
	err       error
	criterion string
	photo     *domain.PhotoContext
	k         int
}

func (m *mockRetriever) Retrieve(
	_ context.Context,
	criterion string,
	photo *domain.PhotoContext,
	k int,
) (*domain.RetrievalResult, error) {
	m.criterion, m.photo, m.k = criterion, photo, k
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{Criterion: criterion, K: k}, nil
}

// mockAssessmentService is a mock implementation of driving.AssessmentService.
type mockAssessmentService struct {
	card *domain.Scorecard
	err  error
	req  driving.AssessRequest
}

func (m *mockAssessmentService) Assess(_ context.Context, req driving.AssessRequest) (*domain.Scorecard, error) {
	m.req = req
	return m.card, m.err
}

func (m *mockAssessmentService) Enhance(
	_ context.Context,
	image []byte,
	_ domain.EnhancementToggles,
) ([]byte, error) {
	return image, m.err
}

// mockIndex is a mock implementation of driving.EmbeddingIndex.
type mockIndex struct {
	stats domain.IndexStats
	docs  []domain.IndexedDocument
	err   error
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

func (m *mockIndex) Verify(_ context.Context) error { return m.err }

func (m *mockIndex) Documents(_ context.Context) ([]domain.IndexedDocument, error) {
	return m.docs, m.err
}

func (m *mockIndex) Document(_ context.Context, id string) (*domain.IndexedDocument, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockIndex) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIndex) Close() error { return nil }
