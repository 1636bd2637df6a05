// Package report renders analysis results into the flat tables and documents
// consumed by plotting notebooks and readers.
//
// Every artifact is written atomically: a temp file in the destination
// directory is filled and renamed into place while holding a lock file next
// to the target. Each run carries a run id so artifacts written by the same
// invocation can be matched up later.
package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/toolgap/internal/aggregate"
	"github.com/harrison/toolgap/internal/transition"
)

// AllConditions fills the condition column of per-model rows
const AllConditions = "all"

// Transition artifact names written into the figure directory
const (
	TransitionCSVName      = "transition_matrices.csv"
	TransitionMarkdownName = "transition_matrices.md"
)

// Format selects an output serialization
type Format string

const (
	FormatCSV      Format = "csv"      // Long label table, one row per (model, condition, label)
	FormatWide     Format = "wide"     // One row per group with count_ and pct_ columns
	FormatJSON     Format = "json"     // Stats-file layout
	FormatMarkdown Format = "markdown" // Tables for humans
	FormatHTML     Format = "html"     // Markdown rendered to HTML
	FormatSQLite   Format = "sqlite"   // runs, label_rates and transitions tables
)

// Formats lists every supported format
var Formats = []Format{FormatCSV, FormatWide, FormatJSON, FormatMarkdown, FormatHTML, FormatSQLite}

// ParseFormat validates a format name. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		return FormatMarkdown, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (supported: %s)", s, joinFormats())
}

// FormatFromPath infers a format from the output file extension, falling
// back to FormatCSV
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".md", ".markdown":
		return FormatMarkdown
	case ".html", ".htm":
		return FormatHTML
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	}
	return FormatCSV
}

func joinFormats() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Report is everything one run can emit. Rates and Transitions are optional;
// formats skip the sections they do not have.
type Report struct {
	RunID       string
	Generated   time.Time
	Command     string
	InputDir    string
	Totals      aggregate.Totals
	Rates       *aggregate.Summary
	Transitions *transition.Result
}

// New returns a Report stamped with a fresh run id and the current time
func New(command, inputDir string) *Report {
	return &Report{
		RunID:     NewRunID(),
		Generated: time.Now().UTC(),
		Command:   command,
		InputDir:  inputDir,
	}
}

// NewRunID returns a random run identifier
func NewRunID() string {
	return uuid.New().String()
}

// Render serializes the report in a byte-oriented format
func Render(r *Report, format Format) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}

	var sb strings.Builder
	switch format {
	case FormatCSV:
		if err := WriteLabelCSV(&sb, r.Rates); err != nil {
			return nil, err
		}
	case FormatWide:
		if err := WriteWideCSV(&sb, r.Rates); err != nil {
			return nil, err
		}
	case FormatJSON:
		return RenderStatsJSON(r)
	case FormatMarkdown:
		return []byte(RenderMarkdown(r)), nil
	case FormatHTML:
		return RenderHTML(r)
	case FormatSQLite:
		return nil, fmt.Errorf("format %s is written with WriteSQLite", format)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return []byte(sb.String()), nil
}

// Emit writes the report to path in the given format
func Emit(ctx context.Context, r *Report, path string, format Format) error {
	if format == FormatSQLite {
		return WriteSQLite(ctx, r, path)
	}
	data, err := Render(r, format)
	if err != nil {
		return fmt.Errorf("render %s report: %w", format, err)
	}
	if err := WriteFile(path, data); err != nil {
		return fmt.Errorf("write %s report: %w", format, err)
	}
	return nil
}

// EmitTransitions writes the transition CSV and its Markdown companion into
// dir and returns the paths written
func EmitTransitions(r *Report, dir string) ([]string, error) {
	if r == nil || r.Transitions == nil {
		return nil, fmt.Errorf("report has no transition matrices")
	}

	var sb strings.Builder
	if err := WriteTransitionCSV(&sb, r.Transitions); err != nil {
		return nil, err
	}

	csvPath := filepath.Join(dir, TransitionCSVName)
	if err := WriteFile(csvPath, []byte(sb.String())); err != nil {
		return nil, fmt.Errorf("write transition table: %w", err)
	}

	mdPath := filepath.Join(dir, TransitionMarkdownName)
	if err := WriteFile(mdPath, []byte(RenderMarkdown(r))); err != nil {
		return []string{csvPath}, fmt.Errorf("write transition report: %w", err)
	}

	return []string{csvPath, mdPath}, nil
}
