package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
)

const defaultTopK = 5

// RetrieveInput is the input schema for the retrieve_references tool.
type RetrieveInput struct {
	Criterion string `json:"criterion" jsonschema:"the scoring criterion to find references for, e.g. composition"`
	Note      string `json:"note,omitempty" jsonschema:"optional description of the photo"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return"`
}

// RetrieveOutput is the output schema for the retrieve_references tool.
type RetrieveOutput struct {
	Query    string          `json:"query"`
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput is one retrieved passage.
type PassageOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Origin     string  `json:"origin"`
	SourceType string  `json:"source_type"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// AssessInput is the input schema for the assess_photo tool.
type AssessInput struct {
	Image  string `json:"image,omitempty" jsonschema:"base64 encoded photo"`
	Path   string `json:"path,omitempty" jsonschema:"path of a photo on the server's filesystem"`
	Name   string `json:"name,omitempty" jsonschema:"label for the photo"`
	Note   string `json:"note,omitempty" jsonschema:"optional description of the photo"`
	Locale string `json:"locale,omitempty" jsonschema:"locale of the feedback, e.g. pt-BR"`
}

// AssessOutput is the output schema for the assess_photo tool.
type AssessOutput struct {
	SubmissionID  string            `json:"submission_id"`
	Status        string            `json:"status"`
	Locale        string            `json:"locale"`
	OverallScore  float64           `json:"overall_score"`
	Summary       string            `json:"summary"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Scores        []CriterionOutput `json:"scores"`
	Enhancements  []string          `json:"enhancements,omitempty"`
	CreatedAt     string            `json:"created_at"`
}

// CriterionOutput is the outcome for one criterion.
type CriterionOutput struct {
	Criterion   string   `json:"criterion"`
	Status      string   `json:"status"`
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	References  []string `json:"references,omitempty"`
	Grounded    bool     `json:"grounded"`
	Reason      string   `json:"reason,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve_references",
		Description: "Find passages from the indexed photography references relevant to a scoring criterion",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "assess_photo",
		Description: "Score a photo against the configured criteria with grounded feedback",
	}, s.handleAssess)
}

// handleRetrieve handles the retrieve_references tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.Criterion == "" {
		return nil, RetrieveOutput{}, fmt.Errorf("%w: criterion is required", domain.ErrInvalidInput)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = s.ports.TopK
	}
	if limit <= 0 {
		limit = defaultTopK
	}

	var photo *domain.PhotoContext
	if input.Note != "" {
		photo = &domain.PhotoContext{Note: input.Note}
	}

	result, err := s.ports.Retriever.Retrieve(ctx, input.Criterion, photo, limit)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Query:    result.Query,
		Passages: make([]PassageOutput, len(result.Hits)),
		Count:    len(result.Hits),
	}
	for i := range result.Hits {
		h := &result.Hits[i]
		output.Passages[i] = PassageOutput{
			ChunkID:    h.ChunkID,
			DocumentID: h.DocumentID,
			Title:      h.Title,
			Origin:     h.Origin,
			SourceType: string(h.SourceType),
			Similarity: h.Similarity,
			Content:    h.Content,
		}
	}

	return nil, output, nil
}

// handleAssess handles the assess_photo tool invocation.
func (s *Server) handleAssess(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessInput,
) (*mcp.CallToolResult, AssessOutput, error) {
	req, err := assessRequest(input)
	if err != nil {
		return nil, AssessOutput{}, err
	}

	card, err := s.ports.Assessment.Assess(ctx, req)
	if err != nil {
		return nil, AssessOutput{}, err
	}

	return nil, toAssessOutput(card), nil
}

func assessRequest(input AssessInput) (driving.AssessRequest, error) {
	req := driving.AssessRequest{
		Name:   input.Name,
		Note:   input.Note,
		Locale: input.Locale,
	}

	switch {
	case input.Image != "":
		data, err := base64.StdEncoding.DecodeString(input.Image)
		if err != nil {
			return req, fmt.Errorf("%w: image is not valid base64: %v", domain.ErrInvalidInput, err)
		}
		req.Image = data
	case input.Path != "":
		data, err := os.ReadFile(input.Path)
		if err != nil {
			return req, fmt.Errorf("read photo: %w", err)
		}
		req.Image = data
		if req.Name == "" {
			req.Name = filepath.Base(input.Path)
		}
	case input.Note == "":
		return req, ErrNoPhoto
	}

	return req, nil
}

func toAssessOutput(card *domain.Scorecard) AssessOutput {
	out := AssessOutput{
		SubmissionID:  card.SubmissionID,
		Status:        string(card.Status),
		Locale:        card.Locale,
		OverallScore:  card.OverallScore,
		Summary:       card.Summary,
		FailureReason: card.FailureReason,
		Scores:        make([]CriterionOutput, len(card.Scores)),
		Enhancements:  card.Enhancements.Names(),
		CreatedAt:     card.CreatedAt.Format(time.RFC3339),
	}
	for i := range card.Scores {
		c := &card.Scores[i]
		out.Scores[i] = CriterionOutput{
			Criterion:   c.Criterion,
			Status:      string(c.Status),
			Score:       c.Score,
			Feedback:    c.Feedback,
			Suggestions: c.Suggestions,
			References:  c.SupportingChunkIDs,
			Grounded:    c.Grounded,
			Reason:      c.Reason,
		}
	}
	return out
}
