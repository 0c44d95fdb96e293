package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// barWidth is the number of cells in a score bar.
const barWidth = 10

// renderScorecard writes a human-readable scorecard to w.
func renderScorecard(w io.Writer, card *domain.Scorecard, bounds domain.ScoreBounds, width int) {
	st := NewStyles(w, nil)
	textWidth := width - 6
	if textWidth < 20 {
		textWidth = 20
	}

	var b strings.Builder
	b.WriteString(st.Title.Render("Scorecard " + card.SubmissionID))
	b.WriteString("\n")
	b.WriteString(st.Muted.Render(fmt.Sprintf("status %s, locale %s", card.Status, card.Locale)))
	b.WriteString("\n\n")

	nameWidth := 0
	for _, cs := range card.Scores {
		if len(cs.Criterion) > nameWidth {
			nameWidth = len(cs.Criterion)
		}
	}

	for _, cs := range card.Scores {
		name := fmt.Sprintf("%-*s", nameWidth, cs.Criterion)
		if !cs.Scored() {
			b.WriteString(st.Subtitle.Render(name))
			b.WriteString("  ")
			b.WriteString(st.Error.Render("unavailable"))
			if cs.Reason != "" {
				b.WriteString(st.Muted.Render(": " + cs.Reason))
			}
			b.WriteString("\n\n")
			continue
		}

		b.WriteString(st.Subtitle.Render(name))
		b.WriteString("  ")
		b.WriteString(scoreStyle(st, cs.Score, bounds).Render(
			fmt.Sprintf("%4s %s", formatScore(cs.Score), scoreBar(cs.Score, bounds))))
		var flags []string
		if !cs.Grounded {
			flags = append(flags, "no references")
		}
		if cs.Untranslated {
			flags = append(flags, "untranslated")
		}
		if len(flags) > 0 {
			b.WriteString("  ")
			b.WriteString(st.Warning.Render(strings.Join(flags, ", ")))
		}
		b.WriteString("\n")

		b.WriteString(indent(st.Normal.Width(textWidth).Render(cs.Feedback), "  "))
		b.WriteString("\n")
		for _, s := range cs.Suggestions {
			b.WriteString(indent(st.Normal.Width(textWidth-2).Render(s), "    "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	overall := "Overall: n/a"
	if card.Status != domain.ScorecardFailed {
		overall = fmt.Sprintf("Overall: %s / %s", formatScore(card.OverallScore), formatScore(bounds.Max))
	}
	summary := st.Title.Render(overall) + "\n" + st.Normal.Width(textWidth).Render(card.Summary)
	if card.SummaryUntranslated {
		summary += "\n" + st.Warning.Render("(summary untranslated)")
	}
	b.WriteString(st.Box.Render(summary))
	b.WriteString("\n")

	if names := card.Enhancements.Names(); len(names) > 0 {
		b.WriteString(st.Muted.Render("Suggested enhancements: " + strings.Join(names, ", ")))
		b.WriteString("\n")
	}

	_, _ = io.WriteString(w, b.String())
}

func scoreStyle(st *Styles, score float64, bounds domain.ScoreBounds) lipgloss.Style {
	span := bounds.Max - bounds.Min
	if span <= 0 {
		return st.Normal
	}
	ratio := (score - bounds.Min) / span
	switch {
	case ratio >= 0.7:
		return st.Success
	case ratio >= 0.4:
		return st.Warning
	default:
		return st.Error
	}
}

// scoreBar draws score as filled cells out of barWidth.
func scoreBar(score float64, bounds domain.ScoreBounds) string {
	span := bounds.Max - bounds.Min
	filled := 0
	if span > 0 {
		filled = int((score-bounds.Min)/span*barWidth + 0.5)
	}
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
