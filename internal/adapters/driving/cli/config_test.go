package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

func runConfigCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"config"}, args...))
	defer func() {
		rootCmd.SetArgs(nil)
		configForce = false
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

// existingConfigStore reports the file as present unless forced.
type existingConfigStore struct {
	mockConfigStore
}

func (s *existingConfigStore) WriteDefault(force bool) error {
	if !force {
		return fmt.Errorf("config %s: %w", s.path, fs.ErrExist)
	}
	return s.mockConfigStore.WriteDefault(true)
}

func TestConfigInit(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	store := &mockConfigStore{path: "/tmp/lenscore/config.toml"}
	configStore = store

	out, err := runConfigCmd(t, "init")

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote /tmp/lenscore/config.toml")
	assert.True(t, store.written)
	assert.False(t, store.force)
}

func TestConfigInit_Existing(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	store := &existingConfigStore{mockConfigStore{path: "/tmp/lenscore/config.toml"}}
	configStore = store

	_, err := runConfigCmd(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists (use --force to overwrite)")

	_, err = runConfigCmd(t, "init", "--force")
	require.NoError(t, err)
	assert.True(t, store.force)
}

func TestConfigShow(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	cfg := domain.DefaultConfig()
	cfg.Model.Provider = domain.AIProviderOpenAI
	cfg.Model.APIKey = "sk-1234567890abcdef"
	cfg.Sources.WikipediaTopics = []string{"Rule of thirds", "Exposure"}
	cfg.Enhancement = domain.EnhancementConfig{Command: "enhance", Args: []string{"--quality", "90"}}
	configStore = &mockConfigStore{cfg: cfg, path: "/etc/lenscore.toml"}

	out, err := runConfigCmd(t, "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration (/etc/lenscore.toml)")
	assert.Contains(t, out, "Wikipedia topics: 2 (en)")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "Criteria: composition, lighting, subject, technical_quality, creativity")
	assert.Contains(t, out, "Command: enhance --quality 90")
	assert.Contains(t, out, "Locales: en -> pt-BR")
}

func TestConfigShow_IsDefault(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runConfigCmd(t)

	require.NoError(t, err)
	assert.Contains(t, out, "[Scoring]")
}

func TestConfigShow_TranslationDisabled(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	cfg := domain.DefaultConfig()
	cfg.Translation.Provider = ""
	configStore = &mockConfigStore{cfg: cfg}

	out, err := runConfigCmd(t, "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Translation]\n  Disabled")
}

func TestConfigShow_LoadError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	configStore = &mockConfigStore{loadErr: domain.ErrInvalidInput}

	_, err := runConfigCmd(t, "show")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigPath(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runConfigCmd(t, "path")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/lenscore/config.toml\n", out)
}

func TestConfigCheck(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	t.Run("reachable", func(t *testing.T) {
		pingServices = func(context.Context) error { return nil }
		out, err := runConfigCmd(t, "check")
		require.NoError(t, err)
		assert.Contains(t, out, "All model backends are reachable.")
	})

	t.Run("unreachable", func(t *testing.T) {
		pingServices = func(context.Context) error {
			return errors.Join(
				fmt.Errorf("%w: connection refused", domain.ErrEmbeddingUnavailable),
				fmt.Errorf("%w: connection refused", domain.ErrLLMUnavailable),
			)
		}
		out, err := runConfigCmd(t, "check")
		require.Error(t, err)
		assert.Contains(t, out, "Model backends unreachable:")
		assert.Contains(t, out, "embedding service unavailable")
	})

	t.Run("not configured", func(t *testing.T) {
		pingServices = nil
		_, err := runConfigCmd(t, "check")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model services not configured")
	})
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Short key", input: "abc123", expected: "****"},
		{name: "Exactly 8 chars", input: "12345678", expected: "****"},
		{name: "Long key", input: "sk-1234567890abcdef", expected: "sk-1...cdef"},
		{name: "Very long key", input: "sk-proj-1234567890abcdefghijklmnop", expected: "sk-p...mnop"},
		{name: "Empty key", input: "", expected: "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskAPIKey(tt.input))
		})
	}
}
