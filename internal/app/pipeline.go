// Package app orchestrates the season pipeline: ratings, features,
// win probabilities, simulation and persistence.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/seasonsim/internal/adapters/ingest"
	"github.com/okian/seasonsim/internal/adapters/repository"
	"github.com/okian/seasonsim/internal/config"
	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/features"
	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/internal/domain/rating"
	"github.com/okian/seasonsim/internal/domain/simulation"
	"github.com/okian/seasonsim/internal/domain/teammeta"
	"github.com/okian/seasonsim/internal/domain/winprob"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/okian/seasonsim/pkg/metrics"
)

// Stage names used for timing and error metrics.
const (
	StageRatings  = "ratings"
	StageFeatures = "features"
	StagePredict  = "predict"
	StageSimulate = "simulate"
	StagePersist  = "persist"
)

// Pipeline runs the batch stages against one Config.
type Pipeline struct {
	cfg        *config.Config
	store      repository.Store
	model      winprob.Model
	normalizer *alias.Normalizer
	meta       *teammeta.Provider
	logger     logger.Logger
	now        func() time.Time
}

// Report summarizes a full run.
type Report struct {
	Season    int
	Ratings   int
	Undefined int
	Features  int
	Result    *simulation.Result
	Artifact  string
}

// New builds a Pipeline. Alias and team metadata files named by cfg are
// loaded here so a bad file fails before any stage runs.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	aliasOpts := []alias.Option{alias.WithLogger(p.logger.Named("alias"))}
	if cfg.AliasFile != "" {
		extra, err := alias.LoadFile(cfg.Path(cfg.AliasFile))
		if err != nil {
			return nil, err
		}
		aliasOpts = append(aliasOpts, alias.WithAliases(extra))
	}
	aliasOpts = append(aliasOpts, alias.WithAliases(cfg.Aliases))
	n, err := alias.New(aliasOpts...)
	if err != nil {
		return nil, err
	}
	p.normalizer = n

	metaOpts := []teammeta.Option{
		teammeta.WithNormalizer(n),
		teammeta.WithLogger(p.logger.Named("teammeta")),
	}
	if cfg.TeamMetaFile != "" {
		entries, err := ingest.ReadFile(cfg.Path(cfg.TeamMetaFile), ingest.ReadTeamMeta)
		if err != nil {
			return nil, err
		}
		metaOpts = append(metaOpts, teammeta.WithEntries(entries))
	}
	p.meta = teammeta.New(metaOpts...)
	return p, nil
}

// Normalizer returns the alias table the pipeline resolved.
func (p *Pipeline) Normalizer() *alias.Normalizer { return p.normalizer }

// stage times fn and records its outcome.
func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	start := p.now()
	err := fn()
	took := p.now().Sub(start)
	metrics.RecordStageDuration(name, took)
	if err != nil {
		metrics.RecordErrorByComponent("pipeline", name)
		p.logger.Error(ctx, "stage failed", logger.String("stage", name), logger.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Info(ctx, "stage finished", logger.String("stage", name), logger.Duration("took", took))
	return nil
}

// Schedule reads the scheduled games.
func (p *Pipeline) Schedule(_ context.Context) ([]model.Game, error) {
	if p.cfg.ScheduleFile == "" {
		return nil, ErrNoSchedule
	}
	return ingest.ReadFile(p.cfg.Path(p.cfg.ScheduleFile), ingest.ReadSchedule)
}

// Ratings reads plays, builds team-week ratings and replaces the stored
// ratings when a store is configured.
func (p *Pipeline) Ratings(ctx context.Context) ([]model.TeamWeekRating, error) {
	var rows []model.TeamWeekRating
	err := p.stage(ctx, StageRatings, func() error {
		if p.cfg.PlaysFile == "" {
			return ErrNoPlays
		}
		plays, err := ingest.ReadFile(p.cfg.Path(p.cfg.PlaysFile), ingest.ReadPlays)
		if err != nil {
			return err
		}
		engine := rating.New(
			rating.WithWindow(p.cfg.RatingWindow),
			rating.WithMinPeriods(p.cfg.RatingMinPeriods),
			rating.WithWorkers(p.cfg.WorkerCount),
			rating.WithNormalizer(p.normalizer),
			rating.WithLogger(p.logger.Named("rating")),
		)
		rows, err = engine.Build(ctx, plays)
		return err
	})
	if err != nil {
		return nil, err
	}
	if p.store != nil {
		if err := p.stage(ctx, StagePersist, func() error { return p.store.ReplaceRatings(ctx, rows) }); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Features joins ratings onto games, adds context and betting signals
// when their tables are configured, and replaces the stored vectors.
func (p *Pipeline) Features(ctx context.Context, games []model.Game, ratings []model.TeamWeekRating) ([]model.GameFeatureVector, error) {
	var vectors []model.GameFeatureVector
	err := p.stage(ctx, StageFeatures, func() error {
		opts := []features.Option{
			features.WithNormalizer(p.normalizer),
			features.WithLogger(p.logger.Named("features")),
		}
		if p.cfg.StadiumsFile != "" {
			stadiums, err := ingest.ReadFile(p.cfg.Path(p.cfg.StadiumsFile), ingest.ReadStadiums)
			if err != nil {
				return err
			}
			opts = append(opts, features.WithContextSignals(features.BuildContext(games, stadiums, p.normalizer)))
		}
		if p.cfg.BettingFile != "" {
			lines, err := ingest.ReadFile(p.cfg.Path(p.cfg.BettingFile), ingest.ReadBetting)
			if err != nil {
				return err
			}
			opts = append(opts, features.WithBettingLines(lines))
		}
		var err error
		vectors, err = features.NewBuilder(opts...).Build(ctx, games, ratings)
		return err
	})
	if err != nil {
		return nil, err
	}
	if p.store != nil {
		if err := p.stage(ctx, StagePersist, func() error { return p.store.ReplaceFeatures(ctx, vectors) }); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// WinModel returns the model used by Predict: the injected one, a table
// from predictions_file, or the configured logistic model.
func (p *Pipeline) WinModel() (winprob.Model, error) {
	if p.model != nil {
		return p.model, nil
	}
	if p.cfg.PredictionsFile != "" {
		probs, err := ingest.ReadFile(p.cfg.Path(p.cfg.PredictionsFile), ingest.ReadPredictions)
		if err != nil {
			return nil, err
		}
		return winprob.NewTable(probs), nil
	}
	fill, err := winprob.ParseFillPolicy(p.cfg.FillPolicy)
	if err != nil {
		return nil, err
	}
	return winprob.NewLogistic(
		winprob.WithCoefficients(p.cfg.ModelIntercept, p.cfg.ModelCoefficients),
		winprob.WithVariant(p.cfg.ModelVariant),
		winprob.WithFillPolicy(fill),
	)
}

// Predict annotates season's games with home-win probabilities.
func (p *Pipeline) Predict(ctx context.Context, season int, games []model.Game, vectors []model.GameFeatureVector) ([]model.Game, error) {
	var out []model.Game
	err := p.stage(ctx, StagePredict, func() error {
		m, err := p.WinModel()
		if err != nil {
			return err
		}
		out, err = winprob.Annotate(ctx, m, SeasonGames(games, season), vectors)
		return err
	})
	return out, err
}

// Simulate runs the season simulation over annotated games, saves the
// summary and writes the artifact. It returns the artifact path.
func (p *Pipeline) Simulate(ctx context.Context, season int, games []model.Game) (*simulation.Result, string, error) {
	var res *simulation.Result
	err := p.stage(ctx, StageSimulate, func() error {
		sim := simulation.New(
			simulation.WithTrials(p.cfg.Trials),
			simulation.WithSeed(p.cfg.Seed),
			simulation.WithPlayoffSlots(p.cfg.PlayoffSlots),
			simulation.WithProbabilityClamp(p.cfg.ProbFloor, p.cfg.ProbCeil),
			simulation.WithWorkers(p.cfg.WorkerCount),
			simulation.WithModelVariant(p.modelVariant()),
			simulation.WithNormalizer(p.normalizer),
			simulation.WithTeamMeta(p.meta),
			simulation.WithLogger(p.logger.Named("simulation")),
		)
		var err error
		res, err = sim.Run(ctx, season, games)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	var path string
	err = p.stage(ctx, StagePersist, func() error {
		if p.store != nil {
			if err := p.store.SaveSummary(ctx, res.Summaries); err != nil {
				return err
			}
		}
		var err error
		path, err = ingest.WriteSummary(p.cfg.ArtifactsDir, season, res.Summaries)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return res, path, nil
}

// modelVariant labels summary rows. Precomputed predictions are recorded
// under the configured variant too, since the table carries no name.
func (p *Pipeline) modelVariant() string {
	if p.cfg.ModelVariant == "" {
		return winprob.VariantBase
	}
	return p.cfg.ModelVariant
}

// SimulateStored re-simulates a season from the stored feature vectors,
// skipping the rating stage. With predictions_file set no vectors are
// needed.
func (p *Pipeline) SimulateStored(ctx context.Context, season int) (*Report, error) {
	games, err := p.Schedule(ctx)
	if err != nil {
		return nil, err
	}
	if season, err = ResolveSeason(games, season); err != nil {
		return nil, err
	}

	var vectors []model.GameFeatureVector
	if p.model == nil && p.cfg.PredictionsFile == "" {
		if p.store == nil {
			return nil, ErrNoStore
		}
		if vectors, err = p.store.Features(ctx, season); err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("%w: %d", ErrNoFeatures, season)
		}
	}

	annotated, err := p.Predict(ctx, season, games, vectors)
	if err != nil {
		return nil, err
	}
	res, path, err := p.Simulate(ctx, season, annotated)
	if err != nil {
		return nil, err
	}
	return &Report{Season: season, Features: len(vectors), Result: res, Artifact: path}, nil
}

// Run executes every stage for season. Season zero picks the latest
// season in the schedule.
func (p *Pipeline) Run(ctx context.Context, season int) (*Report, error) {
	games, err := p.Schedule(ctx)
	if err != nil {
		return nil, err
	}
	if season, err = ResolveSeason(games, season); err != nil {
		return nil, err
	}
	ratings, err := p.Ratings(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := p.Features(ctx, games, ratings)
	if err != nil {
		return nil, err
	}
	annotated, err := p.Predict(ctx, season, games, vectors)
	if err != nil {
		return nil, err
	}
	res, path, err := p.Simulate(ctx, season, annotated)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Season:   season,
		Ratings:  len(ratings),
		Features: len(vectors),
		Result:   res,
		Artifact: path,
	}
	for _, r := range ratings {
		if !r.NetRating.Valid {
			rep.Undefined++
		}
	}
	p.logger.Info(ctx, "pipeline finished",
		logger.Int("season", season),
		logger.Int("ratings", rep.Ratings),
		logger.Int("undefined_ratings", rep.Undefined),
		logger.Int("features", rep.Features),
		logger.String("run_id", res.RunID),
		logger.String("artifact", path),
	)
	return rep, nil
}

// SeasonGames returns the games of season in input order.
func SeasonGames(games []model.Game, season int) []model.Game {
	out := make([]model.Game, 0, len(games))
	for _, g := range games {
		if g.Season == season {
			out = append(out, g)
		}
	}
	return out
}

// ResolveSeason returns season, or the latest season in games when season
// is zero.
func ResolveSeason(games []model.Game, season int) (int, error) {
	if season != 0 {
		return season, nil
	}
	for _, g := range games {
		season = max(season, g.Season)
	}
	if season == 0 {
		return 0, ErrNoSeason
	}
	return season, nil
}

// IsUserError reports whether err is a setup or input defect rather than
// a runtime failure.
func IsUserError(err error) bool {
	return errors.Is(err, model.ErrConfiguration) || errors.Is(err, model.ErrEmptyInput)
}
