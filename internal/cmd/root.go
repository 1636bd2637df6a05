package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for toolgap
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toolgap",
		Short: "Analyze tool-gap benchmark results",
		Long: `toolgap analyzes benchmark runs in which a model is asked to do something
that needs a withheld tool (web search, file access, ...). Each response is
labeled FABRICATION, ADMISSION, SILENT_REFUSAL or NULL.

It computes per-model and per-condition label rates with 95% Wilson
confidence intervals, builds turn-to-turn transition matrices from
multi-turn persistence runs, and writes flat tables for plotting.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: $TOOLGAP_CONFIG or .toolgap/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().Int("workers", 0, "Parallel file reads (0 = one per CPU, overrides config)")
	cmd.PersistentFlags().Bool("recursive", false, "Descend into subdirectories of the input directory")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress, info logs and the run summary")

	cmd.AddCommand(NewMetricsCommand())
	cmd.AddCommand(NewTransitionsCommand())
	cmd.AddCommand(NewCrossCheckCommand())

	return cmd
}
