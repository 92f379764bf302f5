// Package config defines process configuration and the layered loader.
//
// Conventions:
//   - Defaults come from New(); Load layers a YAML file and the environment on top.
//   - Components never read configuration globally; the CLI builds one Config
//     and hands the relevant values to each constructor.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Fill policies for undefined feature values.
const (
	FillZero = "zero"
	FillNone = "none"
)

// Model variants.
const (
	VariantBase     = "base"
	VariantExtended = "extended"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address for the serve command.
	Addr string `koanf:"addr"`
	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// DataDir is the base directory for relative input paths.
	DataDir string `koanf:"data_dir"`
	// Input tables. Empty means "not supplied".
	PlaysFile       string `koanf:"plays_file"`
	ScheduleFile    string `koanf:"schedule_file"`
	PredictionsFile string `koanf:"predictions_file"`
	TeamMetaFile    string `koanf:"team_meta_file"`
	StadiumsFile    string `koanf:"stadiums_file"`
	BettingFile     string `koanf:"betting_file"`
	AliasFile       string `koanf:"alias_file"`

	// DBPath is the SQLite database holding derived tables.
	DBPath string `koanf:"db_path"`
	// ArtifactsDir receives the season summary CSV.
	ArtifactsDir string `koanf:"artifacts_dir"`

	// RatingWindow is the trailing game window of the rolling rating.
	RatingWindow int `koanf:"rating_window"`
	// RatingMinPeriods is the number of prior games required for a defined rating.
	RatingMinPeriods int `koanf:"rating_min_periods"`

	// Trials is the number of simulated seasons.
	Trials int `koanf:"trials"`
	// Seed makes a run reproducible.
	Seed uint64 `koanf:"seed"`
	// PlayoffSlots is the number of qualifiers per conference.
	PlayoffSlots int `koanf:"playoff_slots"`
	// ProbFloor and ProbCeil clamp home-win probabilities.
	ProbFloor float64 `koanf:"prob_floor"`
	ProbCeil  float64 `koanf:"prob_ceil"`
	// WorkerCount shards trials and per-team rating work.
	WorkerCount int `koanf:"worker_count"`

	// FillPolicy decides what the win model sees for undefined features.
	FillPolicy string `koanf:"fill_policy"`
	// ModelVariant selects the feature set: base or extended.
	ModelVariant string `koanf:"model_variant"`
	// ModelIntercept and ModelCoefficients define the logistic win model.
	ModelIntercept    float64            `koanf:"model_intercept"`
	ModelCoefficients map[string]float64 `koanf:"model_coefficients"`

	// Aliases are merged over the built-in team alias table.
	Aliases map[string]string `koanf:"aliases"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		MetricsEnabled:    true,
		DataDir:           "data",
		DBPath:            "data/seasonsim.db",
		ArtifactsDir:      "data/artifacts",
		RatingWindow:      8,
		RatingMinPeriods:  3,
		Trials:            5000,
		Seed:              42,
		PlayoffSlots:      7,
		ProbFloor:         0.001,
		ProbCeil:          0.999,
		WorkerCount:       runtime.NumCPU(),
		FillPolicy:        FillZero,
		ModelVariant:      VariantBase,
		ModelIntercept:    0.1,
		ModelCoefficients: map[string]float64{},
		Aliases:           map[string]string{},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RatingWindow < 1:
		return fmt.Errorf("%w: rating_window must be positive", ErrInvalidConfig)
	case c.RatingMinPeriods < 1 || c.RatingMinPeriods > c.RatingWindow:
		return fmt.Errorf("%w: rating_min_periods must be in [1, rating_window]", ErrInvalidConfig)
	case c.Trials < 1:
		return fmt.Errorf("%w: trials must be positive", ErrInvalidConfig)
	case c.PlayoffSlots < 1:
		return fmt.Errorf("%w: playoff_slots must be positive", ErrInvalidConfig)
	case !(c.ProbFloor > 0 && c.ProbFloor < c.ProbCeil && c.ProbCeil < 1):
		return fmt.Errorf("%w: need 0 < prob_floor < prob_ceil < 1", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.FillPolicy) {
	case FillZero, FillNone:
	default:
		return fmt.Errorf("%w: unknown fill_policy %q", ErrInvalidConfig, c.FillPolicy)
	}
	switch strings.ToLower(c.ModelVariant) {
	case VariantBase, VariantExtended:
	default:
		return fmt.Errorf("%w: unknown model_variant %q", ErrInvalidConfig, c.ModelVariant)
	}
	return nil
}

// Path resolves an input path against DataDir. Empty stays empty.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.DataDir == "" {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
