package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// Parse failures, used as the Problem of a corrective reprompt.
var (
	errNoJSON          = errors.New("response contains no JSON object")
	errMissingScore    = errors.New("response has no score")
	errMissingFeedback = errors.New("response has no feedback")
)

// criterionResponse is the JSON shape the criterion prompt asks for.
type criterionResponse struct {
	Score       json.RawMessage `json:"score"`
	Feedback    string          `json:"feedback"`
	Suggestions []string        `json:"suggestions"`
}

// parsedCriterion is a validated model answer.
type parsedCriterion struct {
	Score       float64
	Feedback    string
	Suggestions []string
}

// parseCriterionResponse extracts the JSON object between the first '{' and
// the last '}' and validates it against bounds. Scores are rounded to
// the nearest half point inside bounds.
func parseCriterionResponse(text string, bounds domain.ScoreBounds) (*parsedCriterion, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}

	var resp criterionResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	score, err := parseScore(resp.Score)
	if err != nil {
		return nil, err
	}
	if !bounds.Contains(score) {
		return nil, fmt.Errorf("score %g is outside %g..%g", score, bounds.Min, bounds.Max)
	}
	feedback := strings.TrimSpace(resp.Feedback)
	if feedback == "" {
		return nil, errMissingFeedback
	}

	var suggestions []string
	for _, s := range resp.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}

	return &parsedCriterion{
		Score:       bounds.Round(score),
		Feedback:    feedback,
		Suggestions: suggestions,
	}, nil
}

// parseScore accepts a JSON number or a numeric string such as "3.5" or "4/5".
func parseScore(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errMissingScore
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("score is not a number: %s", raw)
	}
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("score is not a number: %q", s)
	}
	return n, nil
}
