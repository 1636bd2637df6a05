package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/toolgap/internal/config"
	"github.com/harrison/toolgap/internal/display"
	"github.com/harrison/toolgap/internal/loader"
	"github.com/harrison/toolgap/internal/logger"
	"github.com/harrison/toolgap/internal/models"
)

// runEnv carries the resolved configuration and output streams of one command
type runEnv struct {
	cfg    *config.Config
	log    *logger.ConsoleLogger
	out    io.Writer
	errOut io.Writer
	quiet  bool
	start  time.Time
}

// setupRun resolves configuration, applies global flag overrides and builds
// the logger
func setupRun(cmd *cobra.Command) (*runEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("recursive") {
		cfg.Recursive, _ = cmd.Flags().GetBool("recursive")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	level := cfg.LogLevel
	if quiet && !atLeastWarn(level) {
		level = "warn"
	}

	return &runEnv{
		cfg:    cfg,
		log:    logger.NewConsoleLogger(cmd.ErrOrStderr(), level),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		quiet:  quiet,
		start:  time.Now(),
	}, nil
}

// atLeastWarn reports whether level already hides info messages
func atLeastWarn(level string) bool {
	switch logger.NormalizeLevel(level) {
	case "warn", "error":
		return true
	}
	return false
}

// stringSliceFlag returns the flag value when set, otherwise fallback
func stringSliceFlag(cmd *cobra.Command, name string, fallback []string) []string {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	v, _ := cmd.Flags().GetStringSlice(name)
	return v
}

// stringFlag returns the flag value when set, otherwise fallback
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	v, _ := cmd.Flags().GetString(name)
	return v
}

// loadDir discovers and loads result files, showing per-file progress and
// a warning for any file that had to be skipped
func (e *runEnv) loadDir(ctx context.Context, dir string, include, exclude []string) (*loader.LoadResult, error) {
	var progress *display.ProgressIndicator
	l := loader.New(loader.Options{
		Include:   include,
		Exclude:   exclude,
		Recursive: e.cfg.Recursive,
		Workers:   e.cfg.Workers,
		Logger:    e.log,
		OnFile: func(path string, err error) {
			if progress != nil {
				progress.Step(path, err)
			}
		},
	})

	paths, err := l.Discover(dir)
	if err != nil {
		return nil, err
	}

	if !e.quiet {
		progress = display.NewProgressIndicator(e.errOut, len(paths))
		progress.Start()
	}

	res, err := l.LoadFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load result files: %w", err)
	}

	if progress != nil {
		progress.Complete(len(res.Files))
	}
	if len(res.SkippedFiles) > 0 {
		entries := make([]string, len(res.SkippedFiles))
		for i, fe := range res.SkippedFiles {
			entries[i] = fe.Error()
		}
		display.WarnSkippedFiles(entries).Display(e.errOut)
	}

	return res, nil
}

// finish logs the run summary
func (e *runEnv) finish(summary logger.RunSummary, outputs ...string) {
	if e.quiet {
		return
	}
	summary.Outputs = outputs
	summary.Duration = time.Since(e.start)
	e.log.LogSummary(summary)
}

// filterModels keeps records whose model is listed. An empty list keeps all.
func filterModels(records []models.ResultRecord, names []string) []models.ResultRecord {
	if len(names) == 0 {
		return records
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	out := make([]models.ResultRecord, 0, len(records))
	for _, rec := range records {
		if keep[rec.Model] {
			out = append(out, rec)
		}
	}
	return out
}
