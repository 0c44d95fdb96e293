package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lenscore/internal/adapters/driving/watch"
	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/services"
)

var (
	ingestJSON     bool
	ingestWatch    bool
	ingestDebounce time.Duration
	ingestEvery    time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the configured reference sources",
	Long: `Loads every configured source (PDF and e-book directories, web pages and
Wikipedia topics), splits it into chunks and embeds them into the index.

Unchanged documents are skipped, documents whose source was removed from
the configuration are pruned and incomplete documents are repaired.
A failing source is reported and does not stop the run.

With --watch the command keeps running and ingests again whenever files in
the document directories change. With --every it keeps running and
ingests again on a fixed interval, which refreshes web pages and Wikipedia
articles.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the report as JSON")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "re-run when document directories change")
	ingestCmd.Flags().DurationVar(&ingestDebounce, "debounce", watch.DefaultDebounce, "quiet period before a watched change triggers ingestion")
	ingestCmd.Flags().DurationVar(&ingestEvery, "every", 0, "re-run on this interval, e.g. 6h")
	ingestCmd.MarkFlagsMutuallyExclusive("watch", "every")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	ctx := cmd.Context()

	if err := ingestOnce(ctx, cmd); err != nil {
		return err
	}
	switch {
	case ingestWatch:
		return watchAndIngest(ctx, cmd)
	case ingestEvery > 0:
		return scheduleIngest(ctx, cmd)
	}
	return nil
}

func ingestOnce(ctx context.Context, cmd *cobra.Command) error {
	report, err := ingestionService.Ingest(ctx)
	if report != nil {
		if outErr := outputIngestReport(cmd, report); outErr != nil {
			return outErr
		}
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func watchAndIngest(ctx context.Context, cmd *cobra.Command) error {
	w := watch.New(watchDirs, ingestDebounce)
	defer func() { _ = w.Close() }()

	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch document directories: %w", err)
	}
	cmd.PrintErrf("Watching %s for changes. Press Ctrl+C to stop.\n", strings.Join(watchDirs, ", "))

	for batch := range changes {
		cmd.PrintErrf("%d changed files, ingesting...\n", len(batch))
		if err := ingestOnce(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			cmd.PrintErrf("Error: %v\n", err)
		}
	}
	return nil
}

func scheduleIngest(ctx context.Context, cmd *cobra.Command) error {
	scheduler := services.NewIngestScheduler(ingestEvery, ingestionService, func(report *domain.IngestionReport, err error) {
		if report != nil {
			if outErr := outputIngestReport(cmd, report); outErr != nil {
				cmd.PrintErrf("Error: %v\n", outErr)
			}
		}
		if err != nil && ctx.Err() == nil {
			cmd.PrintErrf("Error: ingestion failed: %v\n", err)
		}
	})
	cmd.PrintErrf("Ingesting every %s. Press Ctrl+C to stop.\n", ingestEvery)

	err := scheduler.Start(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func outputIngestReport(cmd *cobra.Command, report *domain.IngestionReport) error {
	if ingestJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(report.Sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	for _, s := range report.Sources {
		name := s.Title
		if name == "" {
			name = s.Source.Origin
		}
		switch s.Status {
		case domain.SourceFailed:
			cmd.Printf("  %-9s %-10s %s: %s\n", s.Status, s.Source.Type, name, s.Error)
		case domain.SourcePartial:
			cmd.Printf("  %-9s %-10s %s (%d chunks, %d failed)\n", s.Status, s.Source.Type, name, s.Chunks, s.FailedChunks)
		default:
			cmd.Printf("  %-9s %-10s %s (%d chunks)\n", s.Status, s.Source.Type, name, s.Chunks)
		}
	}
	for _, id := range report.Removed {
		cmd.Printf("  %-9s %s\n", "removed", id)
	}
	for _, id := range report.Repaired {
		cmd.Printf("  %-9s %s\n", "repaired", id)
	}

	cmd.Println()
	cmd.Printf("%d sources ok, %d failed, %d removed, %d repaired.\n",
		report.Succeeded(), report.Failed(), len(report.Removed), len(report.Repaired))
	return nil
}
