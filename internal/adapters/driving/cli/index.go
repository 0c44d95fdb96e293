package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the embedding index",
	Long:  `Commands for inspecting and checking the persistent embedding index.`,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every indexed chunk has an embedding",
	Long: `Runs the consistency scan over the index. Orphaned and stale-model
records are removed; documents with missing embeddings are listed and can be
repaired with 'lenscore ingest'.`,
	Args: cobra.NoArgs,
	RunE: runIndexVerify,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

func init() {
	indexCmd.PersistentFlags().BoolVar(&indexJSON, "json", false, "output as JSON")
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexVerifyCmd)
	indexCmd.AddCommand(indexListCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index not configured")
	}
	stats, err := indexService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get index stats: %w", err)
	}
	if indexJSON {
		return printJSON(cmd, stats)
	}

	cmd.Println("Index")
	cmd.Println("=====")
	cmd.Printf("  Documents:  %d (%d incomplete)\n", stats.Documents, stats.IncompleteDocuments)
	cmd.Printf("  Chunks:     %d\n", stats.Chunks)
	cmd.Printf("  Embeddings: %d\n", stats.Embeddings)
	cmd.Printf("  Model:      %s\n", stats.Model)
	if stats.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", stats.Dimensions)
	}
	return nil
}

func runIndexVerify(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index not configured")
	}
	err := indexService.Verify(cmd.Context())
	if err == nil {
		cmd.Println("Index is consistent.")
		return nil
	}

	var inconsistent *domain.IndexConsistencyError
	if !errors.As(err, &inconsistent) {
		return fmt.Errorf("verify failed: %w", err)
	}
	if inconsistent.RemovedRecords > 0 {
		cmd.Printf("Removed %d orphaned or stale records.\n", inconsistent.RemovedRecords)
	}
	if len(inconsistent.IncompleteDocuments) == 0 {
		cmd.Println("Index is consistent.")
		return nil
	}
	cmd.Printf("%d documents have missing embeddings:\n", len(inconsistent.IncompleteDocuments))
	for _, id := range inconsistent.IncompleteDocuments {
		label := id
		if doc, err := indexService.Document(cmd.Context(), id); err == nil {
			label = fmt.Sprintf("%s (%s)", doc.Descriptor(), id)
		}
		cmd.Printf("  %s\n", label)
	}
	cmd.Println("Run 'lenscore ingest' to repair them.")
	return err
}

func runIndexList(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index not configured")
	}
	docs, err := indexService.Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if indexJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}
	for _, d := range docs {
		state := "complete"
		if !d.Complete {
			state = "incomplete"
		}
		title := d.Title
		if title == "" {
			title = d.Origin
		}
		cmd.Printf("  %-10s %-10s %s (%d chunks)\n", d.SourceType, state, title, d.ExpectedChunks)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
