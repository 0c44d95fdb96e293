package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

const mockDims = 64

// mockEmbedder hashes words into a fixed-size bag-of-words vector, so texts
// that share words are similar.
type mockEmbedder struct {
	model string

	mu       sync.Mutex
	calls    int
	batches  int
	failOn   string // embedding fails for texts containing this
	err      error  // embedding always fails with this when set
	batchErr error  // EmbedBatch fails with this when set
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{model: "mock-embed"}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}
	return bagOfWords(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches++
	batchErr := m.batchErr
	m.mu.Unlock()
	if batchErr != nil {
		return nil, batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return mockDims }
func (m *mockEmbedder) ModelName() string            { return m.model }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

func bagOfWords(text string) []float32 {
	v := make([]float32, mockDims)
	v[0] = 0.01 // never a zero vector
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%mockDims]++
	}
	return v
}

// mockLLM answers prompts through a function.
type mockLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(ctx context.Context, prompt string, call int) (string, error)
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	call := len(m.prompts)
	m.mu.Unlock()
	return m.respond(ctx, prompt, call)
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) promptsContaining(s string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.prompts {
		if strings.Contains(p, s) {
			out = append(out, p)
		}
	}
	return out
}

// mockTranslator prefixes text with the target locale, failing for texts
// containing failOn.
type mockTranslator struct {
	failOn string
}

func (m *mockTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return "", errors.New("translation backend unavailable")
	}
	return "[" + target + "] " + text, nil
}

// mockPrompts renders the template data verbatim so tests can match on
// prompt content without the real templates.
type mockPrompts struct{}

func (mockPrompts) Load(name string) (string, error) { return name, nil }
func (mockPrompts) Reload()                          {}

func (mockPrompts) Render(name string, data any) (string, error) {
	return fmt.Sprintf("%s|%+v", name, data), nil
}

// mockAnalyser returns a fixed analysis.
type mockAnalyser struct {
	analysis *domain.PhotoAnalysis
	err      error
}

func (m *mockAnalyser) Analyse(_ context.Context, _ []byte) (*domain.PhotoAnalysis, error) {
	return m.analysis, m.err
}

// mockEnhancer records the toggles it was called with.
type mockEnhancer struct {
	toggles domain.EnhancementToggles
}

func (m *mockEnhancer) Enhance(_ context.Context, image []byte, toggles domain.EnhancementToggles) ([]byte, error) {
	m.toggles = toggles
	return append([]byte("enhanced:"), image...), nil
}
