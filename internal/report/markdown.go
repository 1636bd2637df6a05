package report

import (
	"fmt"
	"strings"

	"github.com/harrison/toolgap/internal/aggregate"
	"github.com/harrison/toolgap/internal/models"
	"github.com/harrison/toolgap/internal/transition"
)

const notAvailable = "n/a"

// RenderMarkdown renders the report as Markdown with GFM tables
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Tool-Gap Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("- **Run ID**: %s\n", r.RunID))
	if !r.Generated.IsZero() {
		sb.WriteString(fmt.Sprintf("- **Generated**: %s\n", r.Generated.Format("2006-01-02 15:04:05 MST")))
	}
	if r.Command != "" {
		sb.WriteString(fmt.Sprintf("- **Command**: %s\n", r.Command))
	}
	if r.InputDir != "" {
		sb.WriteString(fmt.Sprintf("- **Input**: `%s`\n", r.InputDir))
	}
	if r.Totals.Calls > 0 {
		sb.WriteString(fmt.Sprintf("- **Total Calls**: %d\n", r.Totals.Calls))
		sb.WriteString(fmt.Sprintf("- **Total Responses**: %d\n", r.Totals.Responses))
	}
	sb.WriteString("\n")

	if r.Rates != nil {
		writeRateTable(&sb, r.Rates)
	}
	if r.Transitions != nil {
		writeTransitionTables(&sb, r.Transitions)
	}

	return sb.String()
}

func writeRateTable(sb *strings.Builder, s *aggregate.Summary) {
	sb.WriteString("## Label Rates\n\n")
	if len(s.Groups) == 0 {
		sb.WriteString("No records.\n\n")
		return
	}

	sb.WriteString("| Model | Condition | n |")
	for _, l := range models.Labels {
		sb.WriteString(fmt.Sprintf(" %s |", l.Title()))
	}
	sb.WriteString("\n|-------|-----------|---|")
	for range models.Labels {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	for _, g := range s.Groups {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |", escapeCell(g.Group.Model), escapeCell(conditionCell(g.Group)), g.Counts.Total))
		for _, r := range g.Rates {
			sb.WriteString(" " + FormatRate(r) + " |")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nIntervals are 95% Wilson score intervals.\n\n")
}

func writeTransitionTables(sb *strings.Builder, res *transition.Result) {
	sb.WriteString(fmt.Sprintf("## Turn Transitions (gap policy: %s)\n\n", res.Policy))
	if len(res.Models) == 0 {
		sb.WriteString("No sequences.\n\n")
		return
	}

	for _, model := range res.Models {
		m := res.Matrix(model)
		sb.WriteString(fmt.Sprintf("### %s\n\n", escapeCell(model)))
		sb.WriteString(fmt.Sprintf("Sequences: %d, transitions: %d\n\n", res.Sequences[model], m.Total()))

		sb.WriteString("| From \\ To |")
		for _, l := range models.Labels {
			sb.WriteString(fmt.Sprintf(" %s |", l.Title()))
		}
		sb.WriteString(" n |\n|-----------|")
		for range models.Labels {
			sb.WriteString("---|")
		}
		sb.WriteString("---|\n")

		for _, row := range m.Probabilities() {
			sb.WriteString(fmt.Sprintf("| %s |", row.From.Title()))
			for _, p := range row.P {
				cell := notAvailable
				if row.Defined {
					cell = fmt.Sprintf("%.3f", p)
				}
				sb.WriteString(" " + cell + " |")
			}
			sb.WriteString(fmt.Sprintf(" %d |\n", row.Total))
		}
		sb.WriteString("\n")
	}

	if n := len(res.Anomalies); n > 0 {
		sb.WriteString(fmt.Sprintf("%d ordering anomalies were found; see the run log.\n\n", n))
	}
}

// FormatRate renders a rate as "81.0% [72.2, 87.5]", or n/a for an empty group
func FormatRate(r models.RateWithInterval) string {
	if !r.Defined {
		return notAvailable
	}
	return fmt.Sprintf("%.1f%% [%.1f, %.1f]", r.Percentage(), r.CILo*100, r.CIHi*100)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
