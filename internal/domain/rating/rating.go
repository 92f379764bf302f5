// Package rating builds leak-free rolling team strength ratings from
// play-level efficiency observations.
//
// A team's rolling value for a game is the mean of its per-play efficiency
// over the previous W games it played, never including the game itself.
// Fewer than MinPeriods defined prior values leave the rating undefined.
package rating

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/okian/seasonsim/pkg/metrics"
)

// Default engine configuration constants.
const (
	DefaultWindow     = 8
	DefaultMinPeriods = 3
)

// Engine computes TeamWeekRating rows. It holds no per-run state and is
// safe for concurrent use.
type Engine struct {
	window     int
	minPeriods int
	workers    int
	normalizer *alias.Normalizer
	logger     logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindow sets the trailing game window.
func WithWindow(w int) Option {
	return func(e *Engine) {
		if w > 0 {
			e.window = w
		}
	}
}

// WithMinPeriods sets how many defined prior games a rating needs.
func WithMinPeriods(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minPeriods = n
		}
	}
}

// WithWorkers sets how many goroutines share the per-team pass.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithNormalizer sets the team alias normalizer.
func WithNormalizer(n *alias.Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		window:     DefaultWindow,
		minPeriods: DefaultMinPeriods,
		workers:    1,
		normalizer: alias.MustNew(),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.minPeriods > e.window {
		e.minPeriods = e.window
	}
	return e
}

type gameKey struct {
	team   string
	season int
	week   int
	gameID string
}

type side struct {
	sum   float64
	plays int
}

func (s side) perPlay() model.NullFloat {
	if s.plays == 0 {
		return model.None()
	}
	return model.Some(s.sum / float64(s.plays))
}

type teamGame struct {
	key      gameKey
	off, def side
}

// Build filters plays to scrimmage plays, aggregates per team-game on both
// sides of the ball and computes the lagged rolling ratings. Rows come back
// ordered by (team, season, week, game_id).
func (e *Engine) Build(ctx context.Context, plays []model.PlayObservation) ([]model.TeamWeekRating, error) {
	if len(plays) == 0 {
		return nil, ErrNoPlays
	}
	start := time.Now()

	games := map[gameKey]*teamGame{}
	filtered := 0
	for i := range plays {
		p := &plays[i]
		if !p.IsScrimmage() {
			filtered++
			continue
		}
		off := e.normalizer.Normalize(p.Offense)
		def := e.normalizer.Normalize(p.Defense)
		if off == "" || def == "" || p.GameID == "" {
			return nil, fmt.Errorf("%w: row %d (game %q, offense %q, defense %q)", ErrMalformedPlay, i, p.GameID, p.Offense, p.Defense)
		}
		if math.IsNaN(p.Efficiency) {
			continue
		}
		o := bucket(games, gameKey{off, p.Season, p.Week, p.GameID})
		o.off.sum += p.Efficiency
		o.off.plays++
		d := bucket(games, gameKey{def, p.Season, p.Week, p.GameID})
		d.def.sum += p.Efficiency
		d.def.plays++
	}
	metrics.RecordPlaysFiltered(filtered)
	if len(games) == 0 {
		return nil, fmt.Errorf("%w: %d plays, none from scrimmage", ErrNoPlays, len(plays))
	}

	byTeam := map[string][]*teamGame{}
	for _, g := range games {
		byTeam[g.key.team] = append(byTeam[g.key.team], g)
	}
	teams := make([]string, 0, len(byTeam))
	for t := range byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	out := make([][]model.TeamWeekRating, len(teams))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(e.workers, len(teams)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.rollTeam(byTeam[teams[i]])
			}
		}()
	}
	for i := range teams {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	rows := make([]model.TeamWeekRating, 0, len(games))
	undefined := 0
	for _, teamRows := range out {
		for _, r := range teamRows {
			if !r.NetRating.Valid {
				undefined++
			}
			rows = append(rows, r)
		}
	}

	metrics.RecordRatingRows(len(rows), undefined)
	e.logger.Info(ctx, "ratings built",
		logger.Int("rows", len(rows)),
		logger.Int("teams", len(teams)),
		logger.Int("undefined", undefined),
		logger.Int("non_scrimmage", filtered),
		logger.Duration("took", time.Since(start)),
	)
	return rows, nil
}

func bucket(m map[gameKey]*teamGame, k gameKey) *teamGame {
	g, ok := m[k]
	if !ok {
		g = &teamGame{key: k}
		m[k] = g
	}
	return g
}

// rollTeam orders one team's games and fills the rolling columns.
func (e *Engine) rollTeam(games []*teamGame) []model.TeamWeekRating {
	sort.Slice(games, func(i, j int) bool {
		a, b := games[i].key, games[j].key
		if a.season != b.season {
			return a.season < b.season
		}
		if a.week != b.week {
			return a.week < b.week
		}
		return a.gameID < b.gameID
	})

	off := make([]model.NullFloat, len(games))
	def := make([]model.NullFloat, len(games))
	for i, g := range games {
		off[i] = g.off.perPlay()
		def[i] = g.def.perPlay()
	}
	rollOff := LaggedMean(off, e.window, e.minPeriods)
	rollDef := LaggedMean(def, e.window, e.minPeriods)

	rows := make([]model.TeamWeekRating, len(games))
	for i, g := range games {
		rows[i] = model.TeamWeekRating{
			Team:                  g.key.team,
			Season:                g.key.season,
			Week:                  g.key.week,
			GameID:                g.key.gameID,
			OffensePerPlay:        off[i],
			DefenseAllowedPerPlay: def[i],
			RollingOffense:        rollOff[i],
			RollingDefense:        rollDef[i],
			NetRating:             rollOff[i].Sub(rollDef[i]),
		}
	}
	return rows
}

// LaggedMean returns, for each index i, the mean of the defined values
// among xs[i-window:i]. The result is undefined when fewer than minPeriods
// of those values are defined. xs[i] itself never contributes to out[i].
func LaggedMean(xs []model.NullFloat, window, minPeriods int) []model.NullFloat {
	out := make([]model.NullFloat, len(xs))
	for i := range xs {
		var sum float64
		n := 0
		for j := max(0, i-window); j < i; j++ {
			if xs[j].Valid {
				sum += xs[j].Float64
				n++
			}
		}
		if n > 0 && n >= minPeriods {
			out[i] = model.Some(sum / float64(n))
		}
	}
	return out
}
