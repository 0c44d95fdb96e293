// Package cli implements the lenscore command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// skipServices marks commands that run without the pipeline services.
const skipServices = "skipServices"

// Services are the pipeline ports a command works with.
type Services struct {
	Ingestion  driving.IngestionService
	Index      driving.EmbeddingIndex
	Retriever  driving.Retriever
	Assessment driving.AssessmentService

	// Analyser computes photo metrics for retrieval queries. May be nil.
	Analyser driven.PhotoAnalyser

	// Visualizer draws assess --analysis-out images. May be nil.
	Visualizer driven.PhotoVisualizer

	// WatchDirs are the document directories observed by ingest --watch.
	WatchDirs []string

	// Ping checks the model backends. May be nil.
	Ping func(ctx context.Context) error

	// Close releases the services.
	Close func() error
}

// Runtime builds the collaborators of the commands.
type Runtime struct {
	// ConfigStore returns the store for path. An empty path selects the default location.
	ConfigStore func(path string) (driven.ConfigStore, error)

	// Open builds the pipeline services for a configuration.
	Open func(ctx context.Context, cfg domain.Config) (*Services, error)
}

var (
	configPath string
	verbose    bool

	deps Runtime

	configStore       driven.ConfigStore
	appConfig         domain.Config
	ingestionService  driving.IngestionService
	indexService      driving.EmbeddingIndex
	retrieverService  driving.Retriever
	assessmentService driving.AssessmentService
	photoAnalyser     driven.PhotoAnalyser
	photoVisualizer   driven.PhotoVisualizer
	pingServices      func(ctx context.Context) error
	watchDirs         []string
	closeServices     func() error
)

var rootCmd = &cobra.Command{
	Use:   "lenscore",
	Short: "Retrieval-augmented photo scoring",
	Long: `lenscore scores photos against photographic criteria using reference
material indexed from PDFs, e-books, web pages and Wikipedia articles.

Index your reference library with 'lenscore ingest', then assess a photo
with 'lenscore assess photo.jpg'.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default ~/.lenscore/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
}

// setup loads the configuration and builds the services the command needs.
// Services already set are kept.
func setup(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}

	if configStore == nil && deps.ConfigStore != nil {
		store, err := deps.ConfigStore(configPath)
		if err != nil {
			return fmt.Errorf("config store: %w", err)
		}
		configStore = store
	}
	if skipsServices(cmd) || deps.Open == nil || closeServices != nil {
		return nil
	}
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cfg, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := deps.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	appConfig = cfg
	setServices(svc)
	return nil
}

func setServices(svc *Services) {
	ingestionService = svc.Ingestion
	indexService = svc.Index
	retrieverService = svc.Retriever
	assessmentService = svc.Assessment
	photoAnalyser = svc.Analyser
	photoVisualizer = svc.Visualizer
	pingServices = svc.Ping
	watchDirs = svc.WatchDirs
	closeServices = svc.Close
	if closeServices == nil {
		closeServices = func() error { return nil }
	}
}

func skipsServices(cmd *cobra.Command) bool {
	if cmd.Annotations[skipServices] == "true" {
		return true
	}
	// Built-in help and shell completion commands.
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "completion" || c.Name() == cobra.ShellCompRequestCmd {
			return true
		}
	}
	return false
}

// Execute runs the root command with rt and releases the services afterwards.
func Execute(ctx context.Context, rt Runtime) error {
	deps = rt
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("Close services: %v", err)
			}
			closeServices = nil
		}
	}()
	return executeContext(ctx)
}

// executeContext runs rootCmd under ctx.
// Cobra keeps the context a subcommand got on an earlier run, so every
// command is given ctx first.
func executeContext(ctx context.Context) error {
	setContext(rootCmd, ctx)
	return rootCmd.ExecuteContext(ctx)
}

func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		setContext(sub, ctx)
	}
}
