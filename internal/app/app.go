// Package app wires the adapters and core services into one pipeline.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/lenscore/internal/adapters/driven/ai"
	"github.com/custodia-labs/lenscore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lenscore/internal/adapters/driven/photo"
	"github.com/custodia-labs/lenscore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lenscore/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lenscore/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/core/services"
	"github.com/custodia-labs/lenscore/internal/loaders"
	"github.com/custodia-labs/lenscore/internal/loaders/httpfetch"
	"github.com/custodia-labs/lenscore/internal/logger"
	"github.com/custodia-labs/lenscore/internal/postprocessors"
)

// App holds the services of one run.
type App struct {
	Config     domain.Config
	Models     *ai.Services
	Index      *services.EmbeddingIndex
	Retriever  *services.Retriever
	Assessment *services.AssessmentService
	Ingestion  *services.IngestionService
	Catalog    *loaders.Catalog
	Analyser   *photo.Analyser
}

// Open builds every service for cfg and opens the index. Incomplete index
// documents are logged; ingestion repairs them.
func Open(ctx context.Context, cfg domain.Config) (*App, error) {
	prompts, err := file.NewPromptStore(cfg.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("open prompt store: %w", err)
	}

	models, err := ai.NewServices(&cfg, prompts)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Index)
	if err != nil {
		models.Close()
		return nil, fmt.Errorf("open index store: %w", err)
	}

	index := services.NewEmbeddingIndex(store, flat.New(0, flat.DefaultShards), models.Embedding, cfg.Embedding.Workers)
	if err := index.Open(ctx); err != nil {
		var inconsistent *domain.IndexConsistencyError
		if !errors.As(err, &inconsistent) {
			_ = index.Close()
			models.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		logger.Warn("%v", err)
	}

	retriever := services.NewRetriever(index, models.Embedding)

	synthesizer := services.NewSynthesizer(models.LLM, prompts, services.SynthesizerOptions{
		Bounds:      cfg.Scoring.Bounds,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		Timeout:     cfg.Model.Timeout,
		Locale:      cfg.Translation.SourceLocale,
	})

	var localizer *services.Localizer
	if models.Translator != nil {
		localizer = services.NewLocalizer(models.Translator, cfg.Translation.SourceLocale, cfg.Translation.Timeout)
	}

	var enhancer driven.ImageEnhancer
	if cfg.Enhancement.Command != "" {
		enhancer = photo.NewCommandEnhancer(cfg.Enhancement.Command, cfg.Enhancement.Args, photo.ExecRunner{})
	}

	analyser := photo.NewAnalyser(photo.DefaultMaxEdge)
	assessment := services.NewAssessmentService(
		analyser,
		retriever,
		synthesizer,
		localizer,
		enhancer,
		services.AssessmentConfig{
			Criteria: cfg.Scoring.Criteria,
			TopK:     cfg.Scoring.TopK,
			Locale:   cfg.Translation.TargetLocale,
		},
	)

	catalog := loaders.NewCatalog(&cfg)
	ingestion := services.NewIngestionService(
		catalog,
		loaders.NewDefaultRegistry(&cfg, httpfetch.DefaultUserAgent),
		postprocessors.NewDefaultPipeline(cfg.Chunking),
		index,
		cfg.Ingest.Workers,
	)

	return &App{
		Config:     cfg,
		Models:     models,
		Index:      index,
		Retriever:  retriever,
		Assessment: assessment,
		Ingestion:  ingestion,
		Catalog:    catalog,
		Analyser:   analyser,
	}, nil
}

func openStore(cfg domain.IndexConfig) (driven.IndexStore, error) {
	if cfg.Ephemeral() {
		logger.Info("Using an in-memory index; nothing will be persisted")
		return memory.NewIndexStore(), nil
	}
	store, err := sqlite.NewStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Close releases the index and the model backends.
func (a *App) Close() error {
	err := a.Index.Close()
	a.Models.Close()
	return err
}

// Ping checks that the model backends are reachable.
func (a *App) Ping(ctx context.Context) error {
	return a.Models.Ping(ctx)
}

// WatchDirs returns the document directories that exist.
func (a *App) WatchDirs() []string {
	return a.Catalog.Directories()
}
