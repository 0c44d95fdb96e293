package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `View and create the lenscore configuration.

The configuration is a TOML file, by default ~/.lenscore/config.toml.
Keys missing from the file take their default values.`,
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default configuration file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the effective configuration",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the configuration file path",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configStore == nil {
			return errors.New("config store not configured")
		}
		cmd.Println(configStore.Path())
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the model backends are reachable",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	if err := configStore.WriteDefault(configForce); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configStore.Path())
		}
		return fmt.Errorf("failed to write config: %w", err)
	}
	cmd.Printf("Wrote %s\n", configStore.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	cfg, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cmd.Printf("Configuration (%s)\n", configStore.Path())
	cmd.Println("=============")
	cmd.Println()

	cmd.Println("[Sources]")
	cmd.Printf("  PDF directory:    %s\n", cfg.Sources.PDFDirectory)
	cmd.Printf("  E-book directory: %s\n", cfg.Sources.EbookDirectory)
	cmd.Printf("  Web URLs:         %d\n", len(cfg.Sources.WebURLs))
	cmd.Printf("  Wikipedia topics: %d (%s)\n", len(cfg.Sources.WikipediaTopics), cfg.Sources.WikipediaLanguage)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d, overlap: %d, min tail: %d (%s)\n",
		cfg.Chunking.ChunkSize, cfg.Chunking.Overlap, cfg.Chunking.MinTail, cfg.Chunking.TailPolicy)
	cmd.Printf("  Index: %s\n", cfg.Index.Path)
	cmd.Println()

	cmd.Println("[Embedding]")
	printModel(cmd, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.APIKey)
	cmd.Println()

	cmd.Println("[Model]")
	printModel(cmd, cfg.Model.Provider, cfg.Model.Model, cfg.Model.BaseURL, cfg.Model.APIKey)
	cmd.Printf("  Temperature: %g, max tokens: %d, timeout: %s\n", cfg.Model.Temperature, cfg.Model.MaxTokens, cfg.Model.Timeout)
	cmd.Println()

	cmd.Println("[Translation]")
	if cfg.Translation.Provider == "" {
		cmd.Println("  Disabled")
	} else {
		printModel(cmd, cfg.Translation.Provider, cfg.Translation.Model, cfg.Translation.BaseURL, cfg.Translation.APIKey)
		cmd.Printf("  Locales: %s -> %s\n", cfg.Translation.SourceLocale, cfg.Translation.TargetLocale)
	}
	cmd.Println()

	cmd.Println("[Scoring]")
	cmd.Printf("  Criteria: %s\n", strings.Join(cfg.Scoring.Criteria, ", "))
	cmd.Printf("  Range: %g to %g, top k: %d\n", cfg.Scoring.Bounds.Min, cfg.Scoring.Bounds.Max, cfg.Scoring.TopK)
	cmd.Println()

	cmd.Println("[Enhancement]")
	if cfg.Enhancement.Command == "" {
		cmd.Println("  Disabled")
	} else {
		cmd.Printf("  Command: %s %s\n", cfg.Enhancement.Command, strings.Join(cfg.Enhancement.Args, " "))
	}
	cmd.Println()

	cmd.Printf("Prompts: %s\n", cfg.PromptsDir)
	return nil
}

func printModel(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string) {
	cmd.Printf("  Provider: %s\n", provider)
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if pingServices == nil {
		return errors.New("model services not configured")
	}
	if err := pingServices(cmd.Context()); err != nil {
		cmd.Println("Model backends unreachable:")
		for _, line := range strings.Split(err.Error(), "\n") {
			cmd.Printf("  %s\n", line)
		}
		return errors.New("model check failed")
	}
	cmd.Println("All model backends are reachable.")
	return nil
}

// maskAPIKey masks an API key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
