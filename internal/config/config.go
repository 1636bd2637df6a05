// Package config loads toolgap settings from YAML.
//
// Every setting has a default, so a missing config file is not an error.
// Values present in the file override the defaults; command-line flags
// override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/harrison/toolgap/internal/aggregate"
	"github.com/harrison/toolgap/internal/fileutil"
	"github.com/harrison/toolgap/internal/logger"
	"github.com/harrison/toolgap/internal/report"
	"github.com/harrison/toolgap/internal/transition"
)

// EnvConfigPath names the environment variable that points at a config file
const EnvConfigPath = "TOOLGAP_CONFIG"

// MetricsConfig configures the label-rate pipeline
type MetricsConfig struct {
	// Include and Exclude are filename globs for raw result files
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// Format is the output format; empty infers it from the output extension
	Format string `yaml:"format"`

	// GroupBy is "model" or "condition"
	GroupBy string `yaml:"group_by"`

	// Models restricts reports to these models (empty = all)
	Models []string `yaml:"models"`
}

// TransitionsConfig configures the transition-matrix pipeline
type TransitionsConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// GapPolicy is "skip" or "bridge"
	GapPolicy string `yaml:"gap_policy"`

	// Models restricts the matrices to these models (empty = all)
	Models []string `yaml:"models"`
}

// CrossCheckConfig configures stats-file verification
type CrossCheckConfig struct {
	// StatsInclude are filename globs for pre-aggregated stats files
	StatsInclude []string `yaml:"stats_include"`
}

// Config represents toolgap configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Workers bounds parallel file reads (0 = one per CPU)
	Workers int `yaml:"workers"`

	// Recursive descends into subdirectories of the input directory
	Recursive bool `yaml:"recursive"`

	Metrics     MetricsConfig     `yaml:"metrics"`
	Transitions TransitionsConfig `yaml:"transitions"`
	CrossCheck  CrossCheckConfig  `yaml:"crosscheck"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Workers:  0,
		Metrics: MetricsConfig{
			Include: []string{"*.json"},
			Exclude: []string{"*_stats.json"},
			GroupBy: "condition",
		},
		Transitions: TransitionsConfig{
			Include:   []string{"persistence_*.json"},
			Exclude:   []string{"*_stats*"},
			GapPolicy: string(transition.DefaultGapPolicy),
		},
		CrossCheck: CrossCheckConfig{
			StatsInclude: []string{"*_stats.json"},
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg Config
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.Workers != 0 {
		cfg.Workers = yamlCfg.Workers
	}
	if yamlCfg.Recursive {
		cfg.Recursive = true
	}

	m := yamlCfg.Metrics
	if len(m.Include) > 0 {
		cfg.Metrics.Include = m.Include
	}
	if m.Exclude != nil {
		cfg.Metrics.Exclude = m.Exclude
	}
	if m.Format != "" {
		cfg.Metrics.Format = m.Format
	}
	if m.GroupBy != "" {
		cfg.Metrics.GroupBy = m.GroupBy
	}
	if len(m.Models) > 0 {
		cfg.Metrics.Models = m.Models
	}

	tr := yamlCfg.Transitions
	if len(tr.Include) > 0 {
		cfg.Transitions.Include = tr.Include
	}
	if tr.Exclude != nil {
		cfg.Transitions.Exclude = tr.Exclude
	}
	if tr.GapPolicy != "" {
		cfg.Transitions.GapPolicy = tr.GapPolicy
	}
	if len(tr.Models) > 0 {
		cfg.Transitions.Models = tr.Models
	}

	if len(yamlCfg.CrossCheck.StatsInclude) > 0 {
		cfg.CrossCheck.StatsInclude = yamlCfg.CrossCheck.StatsInclude
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .toolgap/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".toolgap", "config.yaml"))
}

// Resolve loads the config named by path, falling back to $TOOLGAP_CONFIG and
// then .toolgap/config.yaml in the working directory. An explicitly named file
// must exist.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return LoadConfigFromDir(".")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return LoadConfig(path)
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}

	if err := validatePatterns("metrics", c.Metrics.Include, c.Metrics.Exclude); err != nil {
		return err
	}
	if c.Metrics.Format != "" {
		if _, err := report.ParseFormat(c.Metrics.Format); err != nil {
			return fmt.Errorf("metrics.format: %w", err)
		}
	}
	if _, err := aggregate.GroupFuncFor(c.Metrics.GroupBy); err != nil {
		return fmt.Errorf("metrics.group_by: %w", err)
	}

	if err := validatePatterns("transitions", c.Transitions.Include, c.Transitions.Exclude); err != nil {
		return err
	}
	if _, err := transition.ParseGapPolicy(c.Transitions.GapPolicy); err != nil {
		return fmt.Errorf("transitions.gap_policy: %w", err)
	}

	if len(c.CrossCheck.StatsInclude) == 0 {
		return fmt.Errorf("crosscheck.stats_include cannot be empty")
	}
	if err := fileutil.ValidatePatterns(c.CrossCheck.StatsInclude); err != nil {
		return fmt.Errorf("crosscheck.stats_include: %w", err)
	}

	return nil
}

func validatePatterns(section string, include, exclude []string) error {
	if len(include) == 0 {
		return fmt.Errorf("%s.include cannot be empty", section)
	}
	if err := fileutil.ValidatePatterns(include); err != nil {
		return fmt.Errorf("%s.include: %w", section, err)
	}
	if err := fileutil.ValidatePatterns(exclude); err != nil {
		return fmt.Errorf("%s.exclude: %w", section, err)
	}
	return nil
}
