package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files or entries (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}
		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, painter(out, color.FgYellow).Sprint(b.String()))
}

// WarnSkippedFiles creates a warning for result files that could not be
// parsed. Entries are "path: reason" lines.
func WarnSkippedFiles(entries []string) Warning {
	noun := "files"
	if len(entries) == 1 {
		noun = "file"
	}
	return Warning{
		Title:      fmt.Sprintf("Skipped %d unreadable result %s", len(entries), noun),
		Message:    "Skipped files are excluded from every count below.",
		Files:      entries,
		Suggestion: `Check that each file is valid JSON with a top-level "results" object`,
	}
}

// WarnMismatches creates a warning for counts that differ between raw result
// files and a stats file
func WarnMismatches(statsFile string, mismatches []string) Warning {
	return Warning{
		Title:      fmt.Sprintf("%d count mismatches against %s", len(mismatches), statsFile),
		Message:    "Counts derived from raw result files differ from the stats file:",
		Files:      mismatches,
		Suggestion: "Regenerate the stats file or check for skipped result files",
	}
}
