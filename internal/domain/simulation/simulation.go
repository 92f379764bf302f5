// Package simulation runs Monte Carlo replications of a season slate and
// summarizes each team's win distribution and playoff odds.
//
// Every trial draws from its own PCG stream seeded by (seed, trial number),
// so a run is bit-for-bit reproducible for a given slate, trial count and
// seed, whatever the worker count. Playoff qualification takes the top N
// teams per conference by trial wins; equal win counts fall back to team
// code order because no tiebreak data is available.
package simulation

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/internal/domain/teammeta"
	"github.com/okian/seasonsim/internal/domain/winprob"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/okian/seasonsim/pkg/metrics"
)

// Default simulator configuration constants.
const (
	DefaultTrials       = 5000
	DefaultSeed         = 42
	DefaultPlayoffSlots = 7
	DefaultProbFloor    = 0.001
	DefaultProbCeil     = 0.999
)

// runNamespace scopes deterministic run ids.
var runNamespace = uuid.MustParse("6f1d3c52-8a0e-4c43-9a55-2b7f4e1d9c10") //nolint:gochecknoglobals // constant namespace

// Simulator runs season replications. It is safe for concurrent use.
type Simulator struct {
	trials    int
	seed      uint64
	slots     int
	floor     float64
	ceil      float64
	workers   int
	batchSize int
	variant   string

	normalizer *alias.Normalizer
	meta       *teammeta.Provider
	logger     logger.Logger
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Season    int
	Trials    int
	Seed      uint64
	Games     int
	Clamped   int
	Summaries []model.SeasonSimSummary // descending average wins
}

// New creates a Simulator.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		trials:     DefaultTrials,
		seed:       DefaultSeed,
		slots:      DefaultPlayoffSlots,
		floor:      DefaultProbFloor,
		ceil:       DefaultProbCeil,
		workers:    1,
		batchSize:  defaultBatchSize,
		variant:    winprob.VariantBase,
		normalizer: alias.MustNew(),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.meta == nil {
		s.meta = teammeta.New(teammeta.WithNormalizer(s.normalizer))
	}
	return s
}

// Run simulates every game of season. All inputs are validated before the
// first trial: an empty slate, a game without a probability or a team
// without metadata fails the run without partial output.
func (s *Simulator) Run(ctx context.Context, season int, games []model.Game) (*Result, error) {
	start := time.Now()
	sl, err := s.prepare(season, games)
	if err != nil {
		metrics.RecordErrorByComponent("simulation", "prepare")
		return nil, err
	}

	workers := min(s.workers, s.trials)
	metrics.UpdateSimulationWorkers(workers)
	s.logger.Info(ctx, "simulation started",
		logger.Int("season", season),
		logger.Int("games", len(sl.prob)),
		logger.Int("teams", len(sl.teams)),
		logger.Int("trials", s.trials),
		logger.Int("workers", workers),
	)

	t, err := newPool(workers, s.batchSize, s.logger).run(ctx, sl, s.trials)
	if err != nil {
		metrics.RecordErrorByComponent("simulation", "run")
		return nil, fmt.Errorf("simulate season %d: %w", season, err)
	}

	res := &Result{
		RunID:     s.runID(season, sl),
		Season:    season,
		Trials:    s.trials,
		Seed:      s.seed,
		Games:     len(sl.prob),
		Clamped:   sl.clamped,
		Summaries: s.summarize(season, sl, t),
	}
	for i := range res.Summaries {
		res.Summaries[i].RunID = res.RunID
	}

	took := time.Since(start)
	metrics.RecordTrials(s.trials, len(sl.prob))
	metrics.RecordProbabilityClamped(sl.clamped)
	metrics.RecordSimulationDuration(took)
	s.logger.Info(ctx, "simulation finished",
		logger.String("run_id", res.RunID),
		logger.Int("clamped", sl.clamped),
		logger.Duration("took", took),
	)
	return res, nil
}

func (s *Simulator) prepare(season int, games []model.Game) (*slate, error) {
	var picked []model.Game
	for _, g := range games {
		if g.Season == season {
			picked = append(picked, g)
		}
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoGames, season)
	}

	codes := map[string]struct{}{}
	ids := make(map[string]struct{}, len(picked))
	for i := range picked {
		g := &picked[i]
		if _, dup := ids[g.GameID]; dup && g.GameID != "" {
			return nil, fmt.Errorf("%w: game %s appears twice", ErrBadGame, g.GameID)
		}
		ids[g.GameID] = struct{}{}
		if !g.HomeWinProb.Valid {
			return nil, &MissingModelOutputError{GameID: g.GameID}
		}
		if !isProbability(g.HomeWinProb.Float64) {
			return nil, fmt.Errorf("%w: game %s has probability %v", ErrBadGame, g.GameID, g.HomeWinProb.Float64)
		}
		g.HomeTeam = s.normalizer.Normalize(g.HomeTeam)
		g.AwayTeam = s.normalizer.Normalize(g.AwayTeam)
		if g.HomeTeam == "" || g.AwayTeam == "" || g.HomeTeam == g.AwayTeam {
			return nil, fmt.Errorf("%w: game %s (%q vs %q)", ErrBadGame, g.GameID, g.HomeTeam, g.AwayTeam)
		}
		codes[g.HomeTeam] = struct{}{}
		codes[g.AwayTeam] = struct{}{}
	}

	teams := make([]string, 0, len(codes))
	for c := range codes {
		teams = append(teams, c)
	}
	sort.Strings(teams)
	meta, err := s.meta.Resolve(season, teams)
	if err != nil {
		return nil, err
	}

	sl := &slate{
		seed:  s.seed,
		slots: s.slots,
		teams: teams,
		meta:  make([]model.TeamMeta, len(teams)),
		home:  make([]int, len(picked)),
		away:  make([]int, len(picked)),
		prob:  make([]float64, len(picked)),
	}
	id := make(map[string]int, len(teams))
	for i, t := range teams {
		id[t] = i
		sl.meta[i] = meta[t]
	}
	played := make([]int, len(teams))
	for i, g := range picked {
		sl.home[i] = id[g.HomeTeam]
		sl.away[i] = id[g.AwayTeam]
		p, clamped := clamp(g.HomeWinProb.Float64, s.floor, s.ceil)
		if clamped {
			sl.clamped++
		}
		sl.prob[i] = p
		played[sl.home[i]]++
		played[sl.away[i]]++
	}
	for _, n := range played {
		sl.maxWins = max(sl.maxWins, n)
	}
	sl.conf = groupBy(len(teams), func(i int) string { return sl.meta[i].Conference })
	sl.div = groupBy(len(teams), func(i int) string { return sl.meta[i].Conference + "\x00" + sl.meta[i].Division })
	return sl, nil
}

func (s *Simulator) summarize(season int, sl *slate, t *tally) []model.SeasonSimSummary {
	xs := make([]float64, sl.maxWins+1)
	for w := range xs {
		xs[w] = float64(w)
	}
	n := float64(t.trials)

	out := make([]model.SeasonSimSummary, len(sl.teams))
	for i, team := range sl.teams {
		mean, std := stat.MeanStdDev(xs, t.hist[i])
		if math.IsNaN(std) {
			std = 0
		}
		out[i] = model.SeasonSimSummary{
			Season:       season,
			Trials:       t.trials,
			ModelVariant: s.variant,
			Team:         team,
			Conference:   sl.meta[i].Conference,
			Division:     sl.meta[i].Division,
			AverageWins:  mean,
			WinStdDev:    std,
			MedianWins:   stat.Quantile(0.5, stat.Empirical, xs, t.hist[i]),
			PlayoffOdds:  float64(t.playoffs[i]) / n,
			DivisionOdds: float64(t.divisions[i]) / n,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageWins != out[j].AverageWins {
			return out[i].AverageWins > out[j].AverageWins
		}
		return out[i].Team < out[j].Team
	})
	return out
}

// runID derives a stable id from everything that determines the output.
func (s *Simulator) runID(season int, sl *slate) string {
	buf := make([]byte, 0, 64+len(sl.prob)*24)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(season))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.trials))
	buf = binary.LittleEndian.AppendUint64(buf, s.seed)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.slots))
	buf = append(buf, s.variant...)
	for i := range sl.prob {
		buf = append(buf, sl.teams[sl.home[i]]...)
		buf = append(buf, 0)
		buf = append(buf, sl.teams[sl.away[i]]...)
		buf = append(buf, 0)
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(sl.prob[i]))
	}
	return uuid.NewSHA1(runNamespace, buf).String()
}
