package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/toolgap/internal/display"
	"github.com/harrison/toolgap/internal/report"
	"github.com/harrison/toolgap/internal/transition"
)

// NewTransitionsCommand creates the transitions command
func NewTransitionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "Build turn-to-turn label transition matrices",
		Long: `Load multi-turn persistence result files, order each sequence by turn
index, and count how often a label at turn N is followed by each label at
turn N+1, per model.

A missing turn (e.g. turns 0 and 2 present, 1 absent) is reported as an
anomaly. With --gap-policy skip (default) no transition is counted across
it; with bridge the next present turn is treated as adjacent.

Writes transition_matrices.csv and transition_matrices.md into --fig-dir.`,
		Example: `  toolgap transitions --in-dir results/ --fig-dir figures/
  toolgap transitions --in-dir results/ --fig-dir figures/ --gap-policy bridge`,
		Args: cobra.NoArgs,
		RunE: runTransitions,
	}

	cmd.Flags().String("in-dir", "", "Directory containing persistence result JSON files")
	cmd.Flags().String("fig-dir", "", "Directory for transition tables")
	cmd.Flags().String("gap-policy", "", "Handling of missing turns: skip or bridge (default from config: skip)")
	cmd.Flags().StringSlice("pattern", nil, "Include glob for persistence files (repeatable)")
	cmd.Flags().StringSlice("exclude", nil, "Exclude glob for persistence files (repeatable)")
	cmd.Flags().StringSlice("models", nil, "Only include these models (default from config: all)")
	cmd.MarkFlagRequired("in-dir")
	cmd.MarkFlagRequired("fig-dir")

	return cmd
}

func runTransitions(cmd *cobra.Command, args []string) error {
	env, err := setupRun(cmd)
	if err != nil {
		return err
	}

	inDir, _ := cmd.Flags().GetString("in-dir")
	figDir, _ := cmd.Flags().GetString("fig-dir")

	policy, err := transition.ParseGapPolicy(stringFlag(cmd, "gap-policy", env.cfg.Transitions.GapPolicy))
	if err != nil {
		return err
	}

	include := stringSliceFlag(cmd, "pattern", env.cfg.Transitions.Include)
	exclude := stringSliceFlag(cmd, "exclude", env.cfg.Transitions.Exclude)

	res, err := env.loadDir(cmd.Context(), inDir, include, exclude)
	if err != nil {
		return err
	}

	records := filterModels(res.Records, stringSliceFlag(cmd, "models", env.cfg.Transitions.Models))
	env.log.LogInfo(fmt.Sprintf("building transitions for %d records (gap policy %s)", len(records), policy))
	built := transition.NewBuilder(policy, env.log).Build(records)

	rep := report.New("transitions", inDir)
	rep.Transitions = built

	written, err := report.EmitTransitions(rep, figDir)
	if err != nil {
		return err
	}

	display.RenderTransitions(env.out, built)

	summary := res.Summary("Transitions")
	summary.Anomalies = len(built.Anomalies)
	env.finish(summary, written...)
	return nil
}
