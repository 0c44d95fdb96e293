package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

func runIngestCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"ingest"}, args...))
	defer func() {
		rootCmd.SetArgs(nil)
		ingestJSON = false
		ingestWatch = false
		ingestEvery = 0
		ingestCmd.Flags().Visit(func(f *pflag.Flag) { f.Changed = false })
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest", ingestCmd.Use)
	assert.Contains(t, ingestCmd.Long, "--watch")
}

func TestIngestCmd_PrintsReport(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	ingestionService = &mockIngestionService{report: &domain.IngestionReport{
		Sources: []domain.SourceReport{
			{
				Source: domain.SourceDescriptor{Type: domain.SourceTypePDF, Origin: "data/pdfs/light.pdf"},
				Title:  "Light",
				Status: domain.SourceIndexed,
				Chunks: 12,
			},
			{
				Source: domain.SourceDescriptor{Type: domain.SourceTypeWeb, Origin: "https://example.com/thirds"},
				Status: domain.SourceFailed,
				Error:  "HTTP 404",
			},
		},
		Removed: []string{"doc-old"},
	}}

	out, err := runIngestCmd(t)

	require.NoError(t, err)
	assert.Contains(t, out, "Light (12 chunks)")
	assert.Contains(t, out, "https://example.com/thirds: HTTP 404")
	assert.Contains(t, out, "removed")
	assert.Contains(t, out, "1 sources ok, 1 failed, 1 removed, 0 repaired.")
}

func TestIngestCmd_NoSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runIngestCmd(t)

	require.NoError(t, err)
	assert.Contains(t, out, "No sources configured.")
}

func TestIngestCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	ingestionService = &mockIngestionService{report: &domain.IngestionReport{
		Sources: []domain.SourceReport{{
			Source: domain.SourceDescriptor{Type: domain.SourceTypeWikipedia, Origin: "Rule of thirds"},
			Status: domain.SourceUnchanged,
			Chunks: 4,
		}},
	}}

	out, err := runIngestCmd(t, "--json")
	require.NoError(t, err)

	var decoded domain.IngestionReport
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Sources, 1)
	assert.Equal(t, domain.SourceUnchanged, decoded.Sources[0].Status)
	assert.Equal(t, "Rule of thirds", decoded.Sources[0].Source.Origin)
}

func TestIngestCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	ingestionService = &mockIngestionService{
		report: &domain.IngestionReport{},
		err:    errors.New("index store broken"),
	}

	_, err := runIngestCmd(t)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion failed")
	assert.Contains(t, err.Error(), "index store broken")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestionService = nil

	_, err := runIngestCmd(t)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}

func TestIngestCmd_WatchWithoutDirectories(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := &mockIngestionService{report: &domain.IngestionReport{}}
	ingestionService = mock

	_, err := runIngestCmd(t, "--watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch document directories")
	assert.Equal(t, 1, mock.calls)
}

func TestIngestCmd_Every(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := &mockIngestionService{report: &domain.IngestionReport{}}
	ingestionService = mock

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "--every", "20ms"})
	defer func() {
		rootCmd.SetArgs(nil)
		setContext(rootCmd, context.Background())
		ingestEvery = 0
		ingestCmd.Flags().Visit(func(f *pflag.Flag) { f.Changed = false })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err := executeContext(ctx)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, mock.calls, 2)
	assert.Contains(t, buf.String(), "Ingesting every 20ms")
}

func TestIngestCmd_EveryStopsAfterEarlierRun(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := &mockIngestionService{report: &domain.IngestionReport{}}
	ingestionService = mock

	// A plain run leaves a background context on the ingest command.
	_, err := runIngestCmd(t)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "--every", "1h"})
	defer func() {
		rootCmd.SetArgs(nil)
		setContext(rootCmd, context.Background())
		ingestEvery = 0
		ingestCmd.Flags().Visit(func(f *pflag.Flag) { f.Changed = false })
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	go func() { done <- executeContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ingest --every ignored the cancelled context")
	}
	assert.Equal(t, 2, mock.calls)
}

func TestIngestCmd_WatchAndEveryExclusive(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := &mockIngestionService{report: &domain.IngestionReport{}}
	ingestionService = mock

	_, err := runIngestCmd(t, "--watch", "--every", "1h")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
	assert.Equal(t, 0, mock.calls)
}
