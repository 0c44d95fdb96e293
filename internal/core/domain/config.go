package domain

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbeddings returns true if the provider has an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// TailPolicy decides what happens to a trailing chunk shorter than the minimum.
type TailPolicy string

// Tail policies.
const (
	// TailMerge extends the previous chunk to absorb the remainder.
	TailMerge TailPolicy = "merge"

	// TailKeep emits the remainder as its own chunk.
	TailKeep TailPolicy = "keep"
)

// IsValid returns true if the policy is recognised.
func (p TailPolicy) IsValid() bool {
	return p == TailMerge || p == TailKeep
}

// SourcesConfig lists where reference material comes from.
type SourcesConfig struct {
	PDFDirectory      string
	EbookDirectory    string
	WebURLs           []string
	WikipediaTopics   []string
	WikipediaLanguage string
}

// IngestConfig tunes the ingestion run.
type IngestConfig struct {
	Workers           int
	RequestsPerSecond float64
	HTTPTimeout       time.Duration
}

// ChunkingConfig sizes chunks in characters.
type ChunkingConfig struct {
	ChunkSize  int
	Overlap    int
	MinTail    int
	TailPolicy TailPolicy
}

// InMemoryIndex is the index path that selects a process-local index with
// no persistence.
const InMemoryIndex = ":memory:"

// IndexConfig locates the persistent index.
type IndexConfig struct {
	Path string
}

// Ephemeral reports whether the index lives only in memory.
func (c IndexConfig) Ephemeral() bool {
	return c.Path == InMemoryIndex
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Workers bounds concurrent embedding calls.
	Workers int
}

// LLMSettings holds generative model configuration.
type LLMSettings struct {
	Provider    AIProvider
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// TranslationSettings holds translation model configuration.
type TranslationSettings struct {
	Provider     AIProvider
	Model        string
	BaseURL      string
	APIKey       string
	SourceLocale string
	TargetLocale string
	Timeout      time.Duration
}

// ScoringConfig fixes the ordered criteria and score range.
type ScoringConfig struct {
	Criteria []string
	Bounds   ScoreBounds
	TopK     int
}

// EnhancementConfig configures the external image enhancer.
type EnhancementConfig struct {
	// Command is the enhancer executable. Empty disables enhancement.
	Command string
	Args    []string
}

// Config is the immutable configuration snapshot for one run.
type Config struct {
	Sources     SourcesConfig
	Ingest      IngestConfig
	Chunking    ChunkingConfig
	Index       IndexConfig
	Embedding   EmbeddingSettings
	Model       LLMSettings
	Translation TranslationSettings
	Scoring     ScoringConfig
	Enhancement EnhancementConfig
	PromptsDir  string
}

// DefaultCriteria are the photographic assessment axes in display order.
func DefaultCriteria() []string {
	return []string{"composition", "lighting", "subject", "technical_quality", "creativity"}
}

// DefaultConfig returns settings with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Sources: SourcesConfig{
			PDFDirectory:      "data/pdfs",
			EbookDirectory:    "data/ebooks",
			WikipediaLanguage: "en",
		},
		Ingest: IngestConfig{
			Workers:           4,
			RequestsPerSecond: 2,
			HTTPTimeout:       20 * time.Second,
		},
		Chunking: ChunkingConfig{
			ChunkSize:  1000,
			Overlap:    200,
			MinTail:    200,
			TailPolicy: TailMerge,
		},
		Index: IndexConfig{Path: "data/vectordb"},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
			Workers:  4,
		},
		Model: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       "llama3.2",
			Temperature: 0.2,
			MaxTokens:   512,
			Timeout:     60 * time.Second,
		},
		Translation: TranslationSettings{
			Provider:     AIProviderOllama,
			Model:        "llama3.2",
			SourceLocale: "en",
			TargetLocale: "pt-BR",
			Timeout:      60 * time.Second,
		},
		Scoring: ScoringConfig{
			Criteria: DefaultCriteria(),
			Bounds:   DefaultScoreBounds(),
			TopK:     5,
		},
	}
}

// Validate checks the snapshot for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunking.chunk_size must be positive", ErrInvalidInput)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: chunking.overlap must be in [0, chunk_size)", ErrInvalidInput)
	}
	if c.Chunking.MinTail < 0 {
		return fmt.Errorf("%w: chunking.min_tail must not be negative", ErrInvalidInput)
	}
	if !c.Chunking.TailPolicy.IsValid() {
		return fmt.Errorf("%w: chunking.tail_policy %q (want merge or keep)", ErrInvalidInput, c.Chunking.TailPolicy)
	}
	if c.Index.Path == "" {
		return fmt.Errorf("%w: index.path is required", ErrInvalidInput)
	}
	if !c.Embedding.Provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: embedding.provider %q", ErrUnsupportedType, c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding.model is required", ErrInvalidInput)
	}
	if !c.Model.Provider.IsValid() {
		return fmt.Errorf("%w: model.provider %q", ErrUnsupportedType, c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("%w: model.temperature must be in [0, 2]", ErrInvalidInput)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("%w: model.max_tokens must be positive", ErrInvalidInput)
	}
	if c.Translation.Provider != "" && !c.Translation.Provider.IsValid() {
		return fmt.Errorf("%w: translation.provider %q", ErrUnsupportedType, c.Translation.Provider)
	}
	for _, tag := range []string{c.Translation.SourceLocale, c.Translation.TargetLocale} {
		if _, err := language.Parse(tag); err != nil {
			return fmt.Errorf("%w: locale %q: %v", ErrInvalidInput, tag, err)
		}
	}
	if len(c.Scoring.Criteria) == 0 {
		return fmt.Errorf("%w: scoring.criteria must not be empty", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(c.Scoring.Criteria))
	for _, name := range c.Scoring.Criteria {
		if name == "" {
			return fmt.Errorf("%w: empty criterion name", ErrInvalidInput)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate criterion %q", ErrInvalidInput, name)
		}
		seen[name] = true
	}
	if !c.Scoring.Bounds.Valid() {
		return fmt.Errorf("%w: scoring.min_score must be below max_score", ErrInvalidInput)
	}
	if c.Scoring.TopK <= 0 {
		return fmt.Errorf("%w: scoring.top_k must be positive", ErrInvalidInput)
	}
	return nil
}

// RemoteSources returns the descriptors for every configured web URL and Wikipedia topic.
// Directory sources are expanded by the loaders registry.
func (c *Config) RemoteSources() []SourceDescriptor {
	var out []SourceDescriptor
	for _, u := range c.Sources.WebURLs {
		out = append(out, SourceDescriptor{Type: SourceTypeWeb, Origin: u})
	}
	for _, t := range c.Sources.WikipediaTopics {
		out = append(out, SourceDescriptor{Type: SourceTypeWikipedia, Origin: t})
	}
	return out
}
