package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

func newTestServer(t *testing.T, retriever *mockRetriever, assessment *mockAssessmentService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Retriever: retriever, Assessment: assessment, TopK: 4})
	require.NoError(t, err)
	return server
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns passages", func(t *testing.T) {
		retriever := &mockRetriever{result: &domain.RetrievalResult{
			Query: "lighting exposure",
			K:     4,
			Hits: []domain.RetrievalHit{{
				ChunkID:    "chunk-1",
				DocumentID: "doc-1",
				Similarity: 0.87,
				Content:    "Golden hour light is warm and directional.",
				Title:      "Light",
				Origin:     "data/pdfs/light.pdf",
				SourceType: domain.SourceTypePDF,
			}},
		}}
		server := newTestServer(t, retriever, &mockAssessmentService{})

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Criterion: "lighting"})

		require.NoError(t, err)
		assert.Equal(t, "lighting exposure", output.Query)
		require.Equal(t, 1, output.Count)
		assert.Equal(t, "chunk-1", output.Passages[0].ChunkID)
		assert.Equal(t, "pdf", output.Passages[0].SourceType)
		assert.Equal(t, 0.87, output.Passages[0].Similarity)
		assert.Nil(t, retriever.photo)
	})

	t.Run("default limit from ports", func(t *testing.T) {
		retriever := &mockRetriever{}
		server := newTestServer(t, retriever, &mockAssessmentService{})

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Criterion: "composition"})

		require.NoError(t, err)
		assert.Equal(t, 4, retriever.k)
		assert.Equal(t, 0, output.Count)
		assert.NotNil(t, output.Passages)
	})

	t.Run("explicit limit and note", func(t *testing.T) {
		retriever := &mockRetriever{}
		server := newTestServer(t, retriever, &mockAssessmentService{})

		_, _, err := server.handleRetrieve(ctx, nil, RetrieveInput{Criterion: "subject", Note: "portrait", Limit: 2})

		require.NoError(t, err)
		assert.Equal(t, 2, retriever.k)
		assert.Equal(t, "subject", retriever.criterion)
		require.NotNil(t, retriever.photo)
		assert.Equal(t, "portrait", retriever.photo.Note)
	})

	t.Run("missing criterion", func(t *testing.T) {
		server := newTestServer(t, &mockRetriever{}, &mockAssessmentService{})

		_, _, err := server.handleRetrieve(ctx, nil, RetrieveInput{})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("retriever error", func(t *testing.T) {
		server := newTestServer(t, &mockRetriever{err: errors.New("embedding backend down")}, &mockAssessmentService{})

		_, _, err := server.handleRetrieve(ctx, nil, RetrieveInput{Criterion: "lighting"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding backend down")
	})
}

func testScorecard() *domain.Scorecard {
	card := &domain.Scorecard{
		SubmissionID: "sub-1",
		Locale:       "en",
		Summary:      "A balanced frame.",
		Scores: []domain.CriterionScore{
			{
				Criterion:          "composition",
				Score:              4,
				Status:             domain.CriterionScored,
				Feedback:           "Strong leading lines.",
				SupportingChunkIDs: []string{"chunk-1"},
				Grounded:           true,
			},
			domain.UnavailableScore("lighting", "model unavailable", nil, false),
		},
		Enhancements: domain.EnhancementToggles{Contrast: true},
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	card.Finalise()
	return card
}

func TestServer_handleAssess(t *testing.T) {
	ctx := context.Background()

	t.Run("base64 image", func(t *testing.T) {
		assessment := &mockAssessmentService{card: testScorecard()}
		server := newTestServer(t, &mockRetriever{}, assessment)
		image := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

		_, output, err := server.handleAssess(ctx, nil, AssessInput{Image: image, Name: "beach.jpg", Locale: "pt-BR"})

		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg bytes"), assessment.req.Image)
		assert.Equal(t, "beach.jpg", assessment.req.Name)
		assert.Equal(t, "pt-BR", assessment.req.Locale)

		assert.Equal(t, "sub-1", output.SubmissionID)
		assert.Equal(t, 4.0, output.OverallScore)
		assert.Equal(t, []string{"contrast"}, output.Enhancements)
		assert.Equal(t, "2026-03-01T12:00:00Z", output.CreatedAt)
		require.Len(t, output.Scores, 2)
		assert.Equal(t, []string{"chunk-1"}, output.Scores[0].References)
		assert.Equal(t, "model unavailable", output.Scores[1].Reason)
	})

	t.Run("path", func(t *testing.T) {
		assessment := &mockAssessmentService{card: testScorecard()}
		server := newTestServer(t, &mockRetriever{}, assessment)
		path := filepath.Join(t.TempDir(), "street.png")
		require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0o644))

		_, _, err := server.handleAssess(ctx, nil, AssessInput{Path: path})

		require.NoError(t, err)
		assert.Equal(t, []byte("png bytes"), assessment.req.Image)
		assert.Equal(t, "street.png", assessment.req.Name)
	})

	t.Run("note only", func(t *testing.T) {
		assessment := &mockAssessmentService{card: testScorecard()}
		server := newTestServer(t, &mockRetriever{}, assessment)

		_, _, err := server.handleAssess(ctx, nil, AssessInput{Note: "sunset over the harbour"})

		require.NoError(t, err)
		assert.Empty(t, assessment.req.Image)
		assert.Equal(t, "sunset over the harbour", assessment.req.Note)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name     string
			input    AssessInput
			wantErr  error
			contains string
		}{
			{name: "nothing given", input: AssessInput{}, wantErr: ErrNoPhoto},
			{name: "bad base64", input: AssessInput{Image: "%%%"}, wantErr: domain.ErrInvalidInput},
			{name: "missing file", input: AssessInput{Path: "/nonexistent/photo.jpg"}, contains: "read photo"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := newTestServer(t, &mockRetriever{}, &mockAssessmentService{card: testScorecard()})
				_, _, err := server.handleAssess(ctx, nil, tt.input)
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				if tt.contains != "" {
					assert.Contains(t, err.Error(), tt.contains)
				}
			})
		}
	})

	t.Run("service error", func(t *testing.T) {
		assessment := &mockAssessmentService{err: domain.ErrInvalidInput}
		server := newTestServer(t, &mockRetriever{}, assessment)

		_, _, err := server.handleAssess(ctx, nil, AssessInput{Note: "x"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
