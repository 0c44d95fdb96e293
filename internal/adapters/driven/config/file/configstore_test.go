package file

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

func writeConfig(t *testing.T, content string) *ConfigStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	store, err := NewConfigStore(path)
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_DefaultPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".lenscore", "config.toml"), store.Path())
}

func TestConfigStore_Load_MissingFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	cfg, err := store.Load()
	require.NoError(t, err)

	want := domain.DefaultConfig()
	want.PromptsDir = filepath.Join(dir, "prompts")
	assert.Equal(t, want, cfg)
}

func TestConfigStore_WriteDefault_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(filepath.Join(dir, "nested", "config.toml"))
	require.NoError(t, err)

	require.NoError(t, store.WriteDefault(false))

	cfg, err := store.Load()
	require.NoError(t, err)

	def := domain.DefaultConfig()
	assert.Equal(t, def.Sources.PDFDirectory, cfg.Sources.PDFDirectory)
	assert.Equal(t, def.Sources.EbookDirectory, cfg.Sources.EbookDirectory)
	assert.Empty(t, cfg.Sources.WebURLs)
	assert.Empty(t, cfg.Sources.WikipediaTopics)
	assert.Equal(t, def.Ingest, cfg.Ingest)
	assert.Equal(t, def.Chunking, cfg.Chunking)
	assert.Equal(t, def.Index, cfg.Index)
	assert.Equal(t, def.Embedding, cfg.Embedding)
	assert.Equal(t, def.Model, cfg.Model)
	assert.Equal(t, def.Translation, cfg.Translation)
	assert.Equal(t, def.Scoring, cfg.Scoring)
	assert.Empty(t, cfg.Enhancement.Command)
	assert.Equal(t, filepath.Join(dir, "nested", "prompts"), cfg.PromptsDir)
}

func TestConfigStore_WriteDefault_RefusesOverwrite(t *testing.T) {
	store := writeConfig(t, "# mine\n")

	err := store.WriteDefault(false)
	assert.ErrorIs(t, err, fs.ErrExist)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "# mine\n", string(data))

	require.NoError(t, store.WriteDefault(true))
	data, err = os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[scoring]")
}

func TestConfigStore_Load_OverridesDefaults(t *testing.T) {
	t.Setenv("MY_OPENAI_KEY", "sk-from-env")
	t.Setenv("ANTHROPIC_API_KEY", "ak-default-env")

	store := writeConfig(t, `
[sources]
web_urls = ["https://example.com/light"]
wikipedia_topics = ["Rule of thirds", "Bokeh"]
wikipedia_language = "pt"

[ingest]
http_timeout = "5s"

[chunking]
chunk_size = 500
overlap = 50
tail_policy = "keep"

[embedding]
provider = "openai"
model = "text-embedding-3-small"
api_key_env = "MY_OPENAI_KEY"

[model]
provider = "anthropic"
name = "claude-3-5-haiku-latest"
timeout = "90s"

[translation]
provider = ""

[scoring]
criteria = ["composition", "lighting"]
min_score = 0.0
max_score = 10.0
top_k = 3

[enhancement]
command = "/usr/local/bin/enhance"
args = ["--quality", "90"]

[prompts]
directory = "/etc/lenscore/prompts"
`)

	cfg, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/light"}, cfg.Sources.WebURLs)
	assert.Equal(t, []string{"Rule of thirds", "Bokeh"}, cfg.Sources.WikipediaTopics)
	assert.Equal(t, "pt", cfg.Sources.WikipediaLanguage)
	assert.Equal(t, "data/pdfs", cfg.Sources.PDFDirectory)
	assert.Equal(t, 5*time.Second, cfg.Ingest.HTTPTimeout)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, domain.ChunkingConfig{ChunkSize: 500, Overlap: 50, MinTail: 200, TailPolicy: domain.TailKeep}, cfg.Chunking)
	assert.Equal(t, domain.AIProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, "sk-from-env", cfg.Embedding.APIKey)
	assert.Equal(t, domain.AIProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Model.Model)
	assert.Equal(t, "ak-default-env", cfg.Model.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Model.Timeout)
	assert.Empty(t, cfg.Translation.Provider)
	assert.Equal(t, []string{"composition", "lighting"}, cfg.Scoring.Criteria)
	assert.Equal(t, domain.ScoreBounds{Min: 0, Max: 10}, cfg.Scoring.Bounds)
	assert.Equal(t, 3, cfg.Scoring.TopK)
	assert.Equal(t, "/usr/local/bin/enhance", cfg.Enhancement.Command)
	assert.Equal(t, []string{"--quality", "90"}, cfg.Enhancement.Args)
	assert.Equal(t, "/etc/lenscore/prompts", cfg.PromptsDir)
}

func TestConfigStore_Load_Errors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		errContains string
	}{
		{"unknown key", "[chunking]\nchunk_sise = 10\n", "unknown configuration keys"},
		{"unknown section", "[search]\nlimit = 3\n", "unknown configuration keys"},
		{"invalid toml", "[chunking\n", "config.toml:"},
		{"wrong type", "[chunking]\nchunk_size = \"big\"\n", "config.toml"},
		{"bad duration", "[model]\ntimeout = \"soon\"\n", "model.timeout"},
		{"negative duration", "[ingest]\nhttp_timeout = \"-1s\"\n", "must not be negative"},
		{"overlap too large", "[chunking]\nchunk_size = 100\noverlap = 100\n", "overlap"},
		{"bad tail policy", "[chunking]\ntail_policy = \"drop\"\n", "tail_policy"},
		{"duplicate criteria", "[scoring]\ncriteria = [\"a\", \"a\"]\n", "duplicate criterion"},
		{"inverted bounds", "[scoring]\nmin_score = 5.0\nmax_score = 1.0\n", "min_score"},
		{"bad locale", "[translation]\ntarget_locale = \"not a locale\"\n", "locale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := writeConfig(t, tt.content)
			_, err := store.Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput, "%v", err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestConfigStore_Load_UnsupportedProvider(t *testing.T) {
	store := writeConfig(t, "[embedding]\nprovider = \"anthropic\"\n")
	_, err := store.Load()
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "embedding.provider")
}

func TestConfigStore_Load_ReadError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	_, err = store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}
	assert.Equal(t, filepath.Join(home, "books"), expandHome("~/books"))
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, "data/pdfs", expandHome("data/pdfs"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}
