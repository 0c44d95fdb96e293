package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

var (
	retrieveLimit   int
	retrieveNote    string
	retrieveJSON    bool
	retrieveSnippet int
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <criterion> [photo]",
	Short: "Show the reference passages retrieved for a criterion",
	Long: `Runs the retrieval step of an assessment on its own and prints the
ranked reference passages with their sources.

The query is built from the criterion and, when given, the photo's
technical analysis and note. Use it to check what evidence the model
will see for a criterion.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveLimit, "limit", "n", 0, "maximum number of passages (default from config)")
	retrieveCmd.Flags().StringVar(&retrieveNote, "note", "", "description of the photo")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	retrieveCmd.Flags().IntVar(&retrieveSnippet, "snippet", 240, "characters of passage text to show")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrieverService == nil {
		return errors.New("retriever not configured")
	}
	criterion := strings.TrimSpace(args[0])
	if criterion == "" {
		return errors.New("criterion must not be empty")
	}

	ctx := cmd.Context()
	photo := &domain.PhotoContext{Note: retrieveNote}
	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		photo.Name = filepath.Base(args[1])
		if photoAnalyser != nil {
			analysis, err := photoAnalyser.Analyse(ctx, data)
			if err != nil {
				cmd.PrintErrf("Warning: photo analysis failed: %v\n", err)
			} else {
				photo.Analysis = analysis
			}
		}
	}

	k := retrieveLimit
	if k <= 0 {
		k = appConfig.Scoring.TopK
	}

	result, err := retrieverService.Retrieve(ctx, criterion, photo, k)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if retrieveJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	return outputRetrieval(cmd, result)
}

func outputRetrieval(cmd *cobra.Command, result *domain.RetrievalResult) error {
	cmd.Printf("Query: %s\n\n", result.Query)
	if result.Empty() {
		cmd.Println("No passages found. Run 'lenscore ingest' to index reference material.")
		return nil
	}

	for i, hit := range result.Hits {
		title := hit.Title
		if title == "" {
			title = hit.Origin
		}
		// Format: [N] Title (similarity)
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, title, hit.Similarity)
		cmd.Printf("      Source: %s %s\n", hit.SourceType, hit.Origin)
		cmd.Printf("      Chunk: %s\n", hit.ChunkID)
		if snippet := truncate(hit.Content, retrieveSnippet); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// truncate shortens s to at most n runes on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
