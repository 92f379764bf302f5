package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/okian/seasonsim/internal/adapters/repository"
	"github.com/okian/seasonsim/internal/app"
	"github.com/okian/seasonsim/internal/config"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/okian/seasonsim/pkg/metrics"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage")

// flagBinding maps a CLI flag onto a config key.
type flagBinding struct {
	flag string
	key  string
}

//nolint:gochecknoglobals // static flag tables
var (
	stringFlags = []flagBinding{
		{"log-level", "log_level"},
		{"log-format", "log_format"},
		{"data-dir", "data_dir"},
		{"db", "db_path"},
		{"artifacts-dir", "artifacts_dir"},
		{"plays", "plays_file"},
		{"schedule", "schedule_file"},
		{"predictions", "predictions_file"},
		{"team-meta", "team_meta_file"},
		{"stadiums", "stadiums_file"},
		{"betting", "betting_file"},
		{"alias-file", "alias_file"},
		{"fill-policy", "fill_policy"},
		{"variant", "model_variant"},
	}
	intFlags = []flagBinding{
		{"rating-window", "rating_window"},
		{"min-periods", "rating_min_periods"},
		{"trials", "trials"},
		{"playoff-slots", "playoff_slots"},
		{"workers", "worker_count"},
	}
	floatFlags = []flagBinding{
		{"prob-floor", "prob_floor"},
		{"prob-ceil", "prob_ceil"},
	}
)

// cli carries state shared by the subcommands once flags are parsed.
type cli struct {
	out    io.Writer
	errOut io.Writer
	cfg    *config.Config
	log    logger.Logger
}

// execute runs the command line and returns the process exit code.
// Configuration and empty-input failures exit 2, everything else 1.
func execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if serr := logger.Sync(); serr != nil {
		fmt.Fprintf(errOut, "seasonsim: %v\n", serr)
	}
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(errOut, "seasonsim: %v\n", err)
	if errors.Is(err, errUsage) || app.IsUserError(err) {
		return exitUsage
	}
	return exitFailure
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}
	defaults := config.New()

	root := &cobra.Command{
		Use:           "seasonsim",
		Short:         "Team ratings and Monte Carlo season simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	pf.String("log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	pf.String("log-format", defaults.LogFormat, "log format: text or json")
	pf.String("data-dir", defaults.DataDir, "base directory for relative input paths")
	pf.String("db", defaults.DBPath, "SQLite database for derived tables")
	pf.Bool("no-store", false, "do not read or write the SQLite database")
	pf.String("artifacts-dir", defaults.ArtifactsDir, "directory for the season summary CSV")
	pf.String("plays", "", "play-by-play CSV")
	pf.String("schedule", "", "schedule CSV")
	pf.String("predictions", "", "precomputed home-win probabilities CSV")
	pf.String("team-meta", "", "team conference/division CSV")
	pf.String("stadiums", "", "stadium location and roof CSV")
	pf.String("betting", "", "closing betting lines CSV")
	pf.String("alias-file", "", "YAML team alias table")
	pf.Int("rating-window", defaults.RatingWindow, "trailing games in the rolling rating")
	pf.Int("min-periods", defaults.RatingMinPeriods, "prior games required for a defined rating")
	pf.Int("trials", defaults.Trials, "simulated seasons")
	pf.Uint64("seed", defaults.Seed, "random seed")
	pf.Int("playoff-slots", defaults.PlayoffSlots, "playoff qualifiers per conference")
	pf.Float64("prob-floor", defaults.ProbFloor, "lowest home-win probability after clamping")
	pf.Float64("prob-ceil", defaults.ProbCeil, "highest home-win probability after clamping")
	pf.Int("workers", defaults.WorkerCount, "worker goroutines")
	pf.String("fill-policy", defaults.FillPolicy, "undefined feature policy: zero or none")
	pf.String("variant", defaults.ModelVariant, "model variant: base or extended")

	root.AddCommand(
		c.ratingsCmd(),
		c.featuresCmd(),
		c.simulateCmd(),
		c.runCmd(),
		c.serveCmd(),
	)
	return root
}

// load layers defaults, config file, environment and changed flags, then
// initializes logging.
func (c *cli) load(cmd *cobra.Command) error {
	flags := cmd.Flags()
	overrides := map[string]any{}
	for _, b := range stringFlags {
		if flags.Changed(b.flag) {
			v, _ := flags.GetString(b.flag)
			overrides[b.key] = v
		}
	}
	for _, b := range intFlags {
		if flags.Changed(b.flag) {
			v, _ := flags.GetInt(b.flag)
			overrides[b.key] = v
		}
	}
	for _, b := range floatFlags {
		if flags.Changed(b.flag) {
			v, _ := flags.GetFloat64(b.flag)
			overrides[b.key] = v
		}
	}
	if flags.Changed("seed") {
		v, _ := flags.GetUint64("seed")
		overrides["seed"] = v
	}
	if flags.Changed("addr") {
		v, _ := flags.GetString("addr")
		overrides["addr"] = v
	}
	file, _ := flags.GetString("config")

	cfg, err := config.Load(cmd.Context(), config.WithFile(file), config.WithOverrides(overrides))
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithWriter(c.errOut), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.SetEnabled(cfg.MetricsEnabled)
	c.cfg = cfg
	c.log = logger.Get()
	return nil
}

// pipeline builds a Pipeline, opening the store unless --no-store is set.
// The returned func releases the store.
func (c *cli) pipeline(cmd *cobra.Command) (*app.Pipeline, func(), error) {
	opts := []app.Option{app.WithLogger(c.log)}
	closeFn := func() {}
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		store, err := repository.Open(cmd.Context(), c.cfg.DBPath, repository.WithLogger(c.log.Named("store")))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, app.WithStore(store))
		closeFn = func() {
			if err := store.Close(); err != nil {
				c.log.Warn(cmd.Context(), "closing store", logger.Error(err))
			}
		}
	}
	p, err := app.New(c.cfg, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return p, closeFn, nil
}
