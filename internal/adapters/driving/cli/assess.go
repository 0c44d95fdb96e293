package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driving"
)

var (
	assessNote        string
	assessLocale      string
	assessJSON        bool
	assessEnhancedOut string
	assessAnalysisOut string
)

var assessCmd = &cobra.Command{
	Use:   "assess [photo]",
	Short: "Score a photo against the assessment criteria",
	Long: `Scores a photo on every configured criterion using the indexed reference
material, and prints the feedback in the target locale.

A criterion the model could not score is reported as unavailable; the other
criteria are still scored. A note describing the photo may be given instead
of, or in addition to, the photo itself.

With --enhanced-out the external enhancer is run with the enhancements the
assessment suggests and the result is written to the given file.

With --analysis-out the photo is written as PNG with the rule of thirds
grid and the measured metrics drawn on top.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().StringVar(&assessNote, "note", "", "description of the photo")
	assessCmd.Flags().StringVar(&assessLocale, "locale", "", "feedback locale (default from config)")
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "output the scorecard as JSON")
	assessCmd.Flags().StringVar(&assessEnhancedOut, "enhanced-out", "", "write the enhanced photo to this file")
	assessCmd.Flags().StringVar(&assessAnalysisOut, "analysis-out", "", "write the photo with the thirds grid and metrics to this PNG file")
	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	if assessmentService == nil {
		return errors.New("assessment service not configured")
	}
	if len(args) == 0 && strings.TrimSpace(assessNote) == "" {
		return errors.New("a photo or --note is required")
	}
	if assessEnhancedOut != "" && len(args) == 0 {
		return errors.New("--enhanced-out requires a photo")
	}
	if assessAnalysisOut != "" && len(args) == 0 {
		return errors.New("--analysis-out requires a photo")
	}

	req := driving.AssessRequest{Note: assessNote, Locale: assessLocale}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		req.Image = data
		req.Name = filepath.Base(args[0])
	}

	ctx := cmd.Context()
	card, err := assessmentService.Assess(ctx, req)
	if err != nil {
		return fmt.Errorf("assessment failed: %w", err)
	}

	if assessJSON {
		data, err := json.MarshalIndent(card, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal scorecard: %w", err)
		}
		cmd.Println(string(data))
	} else {
		renderScorecard(cmd.OutOrStdout(), card, scoreBounds(), outputWidth(cmd.OutOrStdout()))
	}

	if assessAnalysisOut != "" {
		if err := writeAnalysis(ctx, cmd, req.Image, card.Analysis); err != nil {
			return err
		}
	}
	if assessEnhancedOut == "" {
		return nil
	}
	if !card.Enhancements.Any() {
		cmd.PrintErrln("No enhancements suggested; nothing written.")
		return nil
	}
	enhanced, err := assessmentService.Enhance(ctx, req.Image, card.Enhancements)
	if err != nil {
		return fmt.Errorf("enhance photo: %w", err)
	}
	if err := os.WriteFile(assessEnhancedOut, enhanced, 0o644); err != nil {
		return fmt.Errorf("write enhanced photo: %w", err)
	}
	cmd.PrintErrf("Enhanced photo written to %s (%s).\n", assessEnhancedOut, strings.Join(card.Enhancements.Names(), ", "))
	return nil
}

func writeAnalysis(ctx context.Context, cmd *cobra.Command, image []byte, analysis *domain.PhotoAnalysis) error {
	if photoVisualizer == nil {
		return errors.New("photo visualizer not configured")
	}
	data, err := photoVisualizer.Visualize(ctx, image, analysis)
	if err != nil {
		return fmt.Errorf("visualize photo: %w", err)
	}
	if err := os.WriteFile(assessAnalysisOut, data, 0o644); err != nil {
		return fmt.Errorf("write analysis image: %w", err)
	}
	cmd.PrintErrf("Analysis image written to %s.\n", assessAnalysisOut)
	return nil
}

// scoreBounds returns the configured score range.
func scoreBounds() domain.ScoreBounds {
	if appConfig.Scoring.Bounds.Valid() {
		return appConfig.Scoring.Bounds
	}
	return domain.DefaultScoreBounds()
}
