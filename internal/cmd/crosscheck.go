package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/toolgap/internal/aggregate"
	"github.com/harrison/toolgap/internal/display"
	"github.com/harrison/toolgap/internal/fileutil"
	"github.com/harrison/toolgap/internal/loader"
	"github.com/harrison/toolgap/internal/models"
)

// ErrCrossCheckFailed is returned when any stats file disagrees with the raw results
var ErrCrossCheckFailed = errors.New("stats files disagree with raw results")

// NewCrossCheckCommand creates the crosscheck command
func NewCrossCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crosscheck",
		Short: "Verify pre-aggregated stats files against raw results",
		Long: `Re-derive label counts from raw result files and compare them with every
stats file (*_stats.json) in the input directory.

A stats file X_stats.json is compared against its raw file X.json when that
file exists, otherwise against all raw results in the directory. Any count
mismatch makes the command exit non-zero.`,
		Example: `  toolgap crosscheck --in-dir results/`,
		Args:    cobra.NoArgs,
		RunE:    runCrossCheck,
	}

	cmd.Flags().String("in-dir", "", "Directory containing raw result and stats files")
	cmd.Flags().StringSlice("stats", nil, "Include glob for stats files (repeatable)")
	cmd.MarkFlagRequired("in-dir")

	return cmd
}

func runCrossCheck(cmd *cobra.Command, args []string) error {
	env, err := setupRun(cmd)
	if err != nil {
		return err
	}

	inDir, _ := cmd.Flags().GetString("in-dir")
	statsInclude := stringSliceFlag(cmd, "stats", env.cfg.CrossCheck.StatsInclude)

	scan, err := fileutil.ScanDirectory(inDir, fileutil.ScanOptions{
		Include:   statsInclude,
		Recursive: env.cfg.Recursive,
	})
	if err != nil {
		return fmt.Errorf("scan input directory: %w", err)
	}
	if len(scan.Files) == 0 {
		return fmt.Errorf("%w %v in %s", loader.ErrNoInputFiles, statsInclude, inDir)
	}

	res, err := env.loadDir(cmd.Context(), inDir, env.cfg.Metrics.Include, env.cfg.Metrics.Exclude)
	if err != nil {
		return err
	}

	failed := 0
	for _, statsPath := range scan.Files {
		doc, err := aggregate.LoadStatsFile(statsPath)
		if err != nil {
			env.log.LogError(fmt.Sprintf("cannot check stats file: %v", err))
			failed++
			continue
		}

		records := res.Records
		if raw := rawCounterpart(statsPath); raw != "" {
			records = recordsFrom(res.Records, raw)
			env.log.LogInfo(fmt.Sprintf("comparing %s against %s", filepath.Base(statsPath), filepath.Base(raw)))
		}

		lines := mismatchLines(records, doc)
		name := filepath.Base(statsPath)
		if len(lines) > 0 {
			failed++
			display.WarnMismatches(name, lines).Display(env.out)
			continue
		}
		fmt.Fprintf(env.out, "✓ %s: %d groups agree\n", name, len(doc.Summary.Groups))
	}

	summary := res.Summary("Crosscheck")
	env.finish(summary)

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d stats files", ErrCrossCheckFailed, failed, len(scan.Files))
	}
	return nil
}

// rawCounterpart returns X.json for X_stats.json if that file exists
func rawCounterpart(statsPath string) string {
	base := filepath.Base(statsPath)
	if !strings.HasSuffix(base, "_stats.json") {
		return ""
	}
	raw := filepath.Join(filepath.Dir(statsPath), strings.TrimSuffix(base, "_stats.json")+".json")
	if _, err := os.Stat(raw); err != nil {
		return ""
	}
	return raw
}

func recordsFrom(records []models.ResultRecord, source string) []models.ResultRecord {
	var out []models.ResultRecord
	for _, rec := range records {
		if rec.Source == source {
			out = append(out, rec)
		}
	}
	return out
}

// mismatchLines compares label counts, any legacy n and, for per-model
// stats files, the call totals
func mismatchLines(records []models.ResultRecord, doc *aggregate.StatsDocument) []string {
	var lines []string
	for _, m := range aggregate.CrossCheckDocument(records, doc) {
		lines = append(lines, m.String())
	}

	perModel := true
	for _, g := range doc.Summary.Groups {
		if g.Group.Condition != "" {
			perModel = false
			break
		}
	}
	if perModel {
		derived := aggregate.TotalsFor(records)
		if derived.Calls != doc.Totals.Calls {
			lines = append(lines, fmt.Sprintf("total_calls: derived %d, reference %d", derived.Calls, doc.Totals.Calls))
		}
		if derived.Responses != doc.Totals.Responses {
			lines = append(lines, fmt.Sprintf("total_responses: derived %d, reference %d", derived.Responses, doc.Totals.Responses))
		}
	}
	return lines
}
