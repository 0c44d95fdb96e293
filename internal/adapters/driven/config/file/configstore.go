package file

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// DefaultDirName is the per-user directory under the home directory.
const DefaultDirName = ".lenscore"

// Environment variables consulted when api_key_env is not set.
var defaultKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// ConfigStore reads the TOML configuration file.
// Keys missing from the file keep their defaults; unknown keys are rejected.
type ConfigStore struct {
	filePath string
}

// NewConfigStore creates a store for the file at path.
// If path is empty, defaults to ~/.lenscore/config.toml.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName, "config.toml")
	}
	return &ConfigStore{filePath: path}, nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Load reads and validates the configuration.
// A missing file yields the defaults.
func (s *ConfigStore) Load() (domain.Config, error) {
	fc := fromDomain(domain.DefaultConfig())

	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file yet - defaults apply.
	case err != nil:
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return domain.Config{}, decodeError(s.filePath, err)
		}
	}

	cfg, err := fc.toDomain()
	if err != nil {
		return domain.Config{}, fmt.Errorf("%s: %w", s.filePath, err)
	}
	if cfg.PromptsDir == "" {
		cfg.PromptsDir = filepath.Join(filepath.Dir(s.filePath), "prompts")
	}
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("%s: %w", s.filePath, err)
	}
	return cfg, nil
}

// WriteDefault writes the commented default configuration.
// It refuses to overwrite an existing file unless force is set.
func (s *ConfigStore) WriteDefault(force bool) error {
	if !force {
		if _, err := os.Stat(s.filePath); err == nil {
			return fmt.Errorf("config %s: %w", s.filePath, fs.ErrExist)
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(s.filePath, []byte(defaultConfigTOML), 0600)
}

func decodeError(path string, err error) error {
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		return fmt.Errorf("%w: %s: unknown configuration keys:\n%s", domain.ErrInvalidInput, path, strict.String())
	}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return fmt.Errorf("%w: %s:%d:%d: %v", domain.ErrInvalidInput, path, row, col, derr)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, path, err)
}

// File layout. Durations are strings accepted by time.ParseDuration.
type (
	fileConfig struct {
		Sources     sourcesSection     `toml:"sources"`
		Ingest      ingestSection      `toml:"ingest"`
		Chunking    chunkingSection    `toml:"chunking"`
		Index       indexSection       `toml:"index"`
		Embedding   embeddingSection   `toml:"embedding"`
		Model       modelSection       `toml:"model"`
		Translation translationSection `toml:"translation"`
		Scoring     scoringSection     `toml:"scoring"`
		Enhancement enhancementSection `toml:"enhancement"`
		Prompts     promptsSection     `toml:"prompts"`
	}

	sourcesSection struct {
		PDFDirectory      string   `toml:"pdf_directory"`
		EbookDirectory    string   `toml:"ebook_directory"`
		WebURLs           []string `toml:"web_urls"`
		WikipediaTopics   []string `toml:"wikipedia_topics"`
		WikipediaLanguage string   `toml:"wikipedia_language"`
	}

	ingestSection struct {
		Workers           int     `toml:"workers"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		HTTPTimeout       string  `toml:"http_timeout"`
	}

	chunkingSection struct {
		ChunkSize  int    `toml:"chunk_size"`
		Overlap    int    `toml:"overlap"`
		MinTail    int    `toml:"min_tail"`
		TailPolicy string `toml:"tail_policy"`
	}

	indexSection struct {
		Path string `toml:"path"`
	}

	embeddingSection struct {
		Provider  string `toml:"provider"`
		Model     string `toml:"model"`
		BaseURL   string `toml:"base_url"`
		APIKeyEnv string `toml:"api_key_env"`
		Workers   int    `toml:"workers"`
	}

	modelSection struct {
		Provider    string  `toml:"provider"`
		Name        string  `toml:"name"`
		BaseURL     string  `toml:"base_url"`
		APIKeyEnv   string  `toml:"api_key_env"`
		Temperature float64 `toml:"temperature"`
		MaxTokens   int     `toml:"max_tokens"`
		Timeout     string  `toml:"timeout"`
	}

	translationSection struct {
		Provider     string `toml:"provider"`
		Model        string `toml:"model"`
		BaseURL      string `toml:"base_url"`
		APIKeyEnv    string `toml:"api_key_env"`
		SourceLocale string `toml:"source_locale"`
		TargetLocale string `toml:"target_locale"`
		Timeout      string `toml:"timeout"`
	}

	scoringSection struct {
		Criteria []string `toml:"criteria"`
		MinScore float64  `toml:"min_score"`
		MaxScore float64  `toml:"max_score"`
		TopK     int      `toml:"top_k"`
	}

	enhancementSection struct {
		Command string   `toml:"command"`
		Args    []string `toml:"args"`
	}

	promptsSection struct {
		Directory string `toml:"directory"`
	}
)

func fromDomain(c domain.Config) fileConfig {
	return fileConfig{
		Sources: sourcesSection{
			PDFDirectory:      c.Sources.PDFDirectory,
			EbookDirectory:    c.Sources.EbookDirectory,
			WebURLs:           c.Sources.WebURLs,
			WikipediaTopics:   c.Sources.WikipediaTopics,
			WikipediaLanguage: c.Sources.WikipediaLanguage,
		},
		Ingest: ingestSection{
			Workers:           c.Ingest.Workers,
			RequestsPerSecond: c.Ingest.RequestsPerSecond,
			HTTPTimeout:       c.Ingest.HTTPTimeout.String(),
		},
		Chunking: chunkingSection{
			ChunkSize:  c.Chunking.ChunkSize,
			Overlap:    c.Chunking.Overlap,
			MinTail:    c.Chunking.MinTail,
			TailPolicy: string(c.Chunking.TailPolicy),
		},
		Index: indexSection{Path: c.Index.Path},
		Embedding: embeddingSection{
			Provider: string(c.Embedding.Provider),
			Model:    c.Embedding.Model,
			BaseURL:  c.Embedding.BaseURL,
			Workers:  c.Embedding.Workers,
		},
		Model: modelSection{
			Provider:    string(c.Model.Provider),
			Name:        c.Model.Model,
			BaseURL:     c.Model.BaseURL,
			Temperature: c.Model.Temperature,
			MaxTokens:   c.Model.MaxTokens,
			Timeout:     c.Model.Timeout.String(),
		},
		Translation: translationSection{
			Provider:     string(c.Translation.Provider),
			Model:        c.Translation.Model,
			BaseURL:      c.Translation.BaseURL,
			SourceLocale: c.Translation.SourceLocale,
			TargetLocale: c.Translation.TargetLocale,
			Timeout:      c.Translation.Timeout.String(),
		},
		Scoring: scoringSection{
			Criteria: c.Scoring.Criteria,
			MinScore: c.Scoring.Bounds.Min,
			MaxScore: c.Scoring.Bounds.Max,
			TopK:     c.Scoring.TopK,
		},
		Enhancement: enhancementSection{
			Command: c.Enhancement.Command,
			Args:    c.Enhancement.Args,
		},
		Prompts: promptsSection{Directory: c.PromptsDir},
	}
}

func (f *fileConfig) toDomain() (domain.Config, error) {
	httpTimeout, err := parseDuration("ingest.http_timeout", f.Ingest.HTTPTimeout)
	if err != nil {
		return domain.Config{}, err
	}
	modelTimeout, err := parseDuration("model.timeout", f.Model.Timeout)
	if err != nil {
		return domain.Config{}, err
	}
	translateTimeout, err := parseDuration("translation.timeout", f.Translation.Timeout)
	if err != nil {
		return domain.Config{}, err
	}

	embeddingProvider := domain.AIProvider(f.Embedding.Provider)
	modelProvider := domain.AIProvider(f.Model.Provider)
	translationProvider := domain.AIProvider(f.Translation.Provider)

	return domain.Config{
		Sources: domain.SourcesConfig{
			PDFDirectory:      expandHome(f.Sources.PDFDirectory),
			EbookDirectory:    expandHome(f.Sources.EbookDirectory),
			WebURLs:           f.Sources.WebURLs,
			WikipediaTopics:   f.Sources.WikipediaTopics,
			WikipediaLanguage: f.Sources.WikipediaLanguage,
		},
		Ingest: domain.IngestConfig{
			Workers:           f.Ingest.Workers,
			RequestsPerSecond: f.Ingest.RequestsPerSecond,
			HTTPTimeout:       httpTimeout,
		},
		Chunking: domain.ChunkingConfig{
			ChunkSize:  f.Chunking.ChunkSize,
			Overlap:    f.Chunking.Overlap,
			MinTail:    f.Chunking.MinTail,
			TailPolicy: domain.TailPolicy(f.Chunking.TailPolicy),
		},
		Index: domain.IndexConfig{Path: expandHome(f.Index.Path)},
		Embedding: domain.EmbeddingSettings{
			Provider: embeddingProvider,
			Model:    f.Embedding.Model,
			BaseURL:  f.Embedding.BaseURL,
			APIKey:   apiKey(embeddingProvider, f.Embedding.APIKeyEnv),
			Workers:  f.Embedding.Workers,
		},
		Model: domain.LLMSettings{
			Provider:    modelProvider,
			Model:       f.Model.Name,
			BaseURL:     f.Model.BaseURL,
			APIKey:      apiKey(modelProvider, f.Model.APIKeyEnv),
			Temperature: f.Model.Temperature,
			MaxTokens:   f.Model.MaxTokens,
			Timeout:     modelTimeout,
		},
		Translation: domain.TranslationSettings{
			Provider:     translationProvider,
			Model:        f.Translation.Model,
			BaseURL:      f.Translation.BaseURL,
			APIKey:       apiKey(translationProvider, f.Translation.APIKeyEnv),
			SourceLocale: f.Translation.SourceLocale,
			TargetLocale: f.Translation.TargetLocale,
			Timeout:      translateTimeout,
		},
		Scoring: domain.ScoringConfig{
			Criteria: f.Scoring.Criteria,
			Bounds:   domain.ScoreBounds{Min: f.Scoring.MinScore, Max: f.Scoring.MaxScore},
			TopK:     f.Scoring.TopK,
		},
		Enhancement: domain.EnhancementConfig{
			Command: expandHome(f.Enhancement.Command),
			Args:    f.Enhancement.Args,
		},
		PromptsDir: expandHome(f.Prompts.Directory),
	}, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, key)
	}
	return d, nil
}

// apiKey reads the key from the named environment variable, or from the
// provider's conventional variable when none is named.
func apiKey(provider domain.AIProvider, env string) string {
	if env == "" {
		env = defaultKeyEnv[provider]
	}
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// defaultConfigTOML is written by WriteDefault. It matches domain.DefaultConfig.
const defaultConfigTOML = `# lenscore configuration

[sources]
# Directories scanned for PDF and EPUB books. Plain text and Markdown files
# found in either directory are ingested too.
pdf_directory = "data/pdfs"
ebook_directory = "data/ebooks"
# Articles fetched over HTTP(S).
web_urls = []
# Wikipedia article titles.
wikipedia_topics = []
wikipedia_language = "en"

[ingest]
workers = 4
requests_per_second = 2.0
http_timeout = "20s"

[chunking]
# Sizes in characters.
chunk_size = 1000
overlap = 200
min_tail = 200
# merge: a short final chunk is absorbed by the previous one. keep: emitted as is.
tail_policy = "merge"

[index]
# Directory of the embedding index. ":memory:" keeps it in memory only.
path = "data/vectordb"

[embedding]
provider = "ollama"        # ollama | openai
model = "nomic-embed-text"
base_url = ""
api_key_env = ""           # defaults to OPENAI_API_KEY for openai
workers = 4

[model]
provider = "ollama"        # ollama | openai | anthropic
name = "llama3.2"
base_url = ""
api_key_env = ""
temperature = 0.2
max_tokens = 512
timeout = "1m0s"

[translation]
provider = "ollama"        # empty disables localization
model = "llama3.2"
base_url = ""
api_key_env = ""
source_locale = "en"
target_locale = "pt-BR"
timeout = "1m0s"

[scoring]
criteria = ["composition", "lighting", "subject", "technical_quality", "creativity"]
min_score = 1.0
max_score = 5.0
top_k = 5

[enhancement]
# External enhancer. Receives the image on stdin and the flags
# --brightness --contrast --color-balance --sharpness; writes the result to stdout.
command = ""
args = []

[prompts]
directory = ""             # defaults to the prompts directory next to this file
`
