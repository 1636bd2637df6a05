package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/toolgap/internal/aggregate"
	"github.com/harrison/toolgap/internal/display"
	"github.com/harrison/toolgap/internal/report"
)

// NewMetricsCommand creates the metrics command
func NewMetricsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute label rates with 95% Wilson intervals",
		Long: `Load raw result files, count labels per model (and condition), and write
the rate table with 95% Wilson score intervals.

The output format follows --format, the config file, or the extension of
--out (.csv, .json, .md, .html, .db), in that order. Files ending in
_stats.json are skipped; use 'toolgap crosscheck' to verify them.`,
		Example: `  toolgap metrics --in-dir results/ --out figures/label_rates.csv
  toolgap metrics --in-dir results/ --out report.html --by model
  toolgap metrics --in-dir results/ --out rates.csv --format wide --pattern 'cross_domain*.json'`,
		Args: cobra.NoArgs,
		RunE: runMetrics,
	}

	cmd.Flags().String("in-dir", "", "Directory containing raw result JSON files")
	cmd.Flags().String("out", "", "Output file")
	cmd.Flags().String("format", "", "Output format: csv, wide, json, markdown, html, sqlite")
	cmd.Flags().String("by", "", "Grouping: model or condition (default from config: condition)")
	cmd.Flags().StringSlice("pattern", nil, "Include glob for result files (repeatable)")
	cmd.Flags().StringSlice("exclude", nil, "Exclude glob for result files (repeatable)")
	cmd.Flags().StringSlice("models", nil, "Only report these models")
	cmd.MarkFlagRequired("in-dir")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runMetrics(cmd *cobra.Command, args []string) error {
	env, err := setupRun(cmd)
	if err != nil {
		return err
	}

	inDir, _ := cmd.Flags().GetString("in-dir")
	outPath, _ := cmd.Flags().GetString("out")

	format := report.FormatFromPath(outPath)
	if name := stringFlag(cmd, "format", env.cfg.Metrics.Format); name != "" {
		format, err = report.ParseFormat(name)
		if err != nil {
			return err
		}
	}

	groupBy, err := aggregate.GroupFuncFor(stringFlag(cmd, "by", env.cfg.Metrics.GroupBy))
	if err != nil {
		return err
	}

	include := stringSliceFlag(cmd, "pattern", env.cfg.Metrics.Include)
	exclude := stringSliceFlag(cmd, "exclude", env.cfg.Metrics.Exclude)

	res, err := env.loadDir(cmd.Context(), inDir, include, exclude)
	if err != nil {
		return err
	}

	records := filterModels(res.Records, stringSliceFlag(cmd, "models", env.cfg.Metrics.Models))
	summary := aggregate.Aggregate(records, groupBy)
	if err := summary.Validate(); err != nil {
		return fmt.Errorf("aggregation invariant violated: %w", err)
	}

	rep := report.New("metrics", inDir)
	rep.Totals = aggregate.TotalsFor(records)
	rep.Rates = summary

	env.log.LogInfo(fmt.Sprintf("writing %d groups to %s (%s)", len(summary.Groups), outPath, format))
	if err := report.Emit(cmd.Context(), rep, outPath, format); err != nil {
		return err
	}

	display.RenderRates(env.out, summary)
	env.finish(res.Summary("Metrics"), outPath)
	return nil
}
