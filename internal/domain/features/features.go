// Package features joins home and away team ratings into per-game
// home-minus-away feature vectors.
//
// The join is exact on (season, week, game_id, team): each game sees the
// ratings computed for that very game, which only use earlier games.
// Undefined inputs produce undefined diffs; no fill policy is applied here.
package features

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/pkg/logger"
	"github.com/okian/seasonsim/pkg/metrics"
)

// Builder produces GameFeatureVector rows.
type Builder struct {
	normalizer *alias.Normalizer
	context    []model.ContextSignal
	betting    []model.BettingLine
	logger     logger.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithContextSignals adds rest, travel and venue signals.
func WithContextSignals(signals []model.ContextSignal) Option {
	return func(b *Builder) { b.context = signals }
}

// WithBettingLines adds closing market lines.
func WithBettingLines(lines []model.BettingLine) Option {
	return func(b *Builder) { b.betting = lines }
}

// WithNormalizer sets the team alias normalizer.
func WithNormalizer(n *alias.Normalizer) Option {
	return func(b *Builder) {
		if n != nil {
			b.normalizer = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		normalizer: alias.MustNew(),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type ratingKey struct {
	season int
	week   int
	gameID string
	team   string
}

type contextKey struct {
	gameID string
	team   string
}

// Build returns one vector per game, in input order.
func (b *Builder) Build(ctx context.Context, games []model.Game, ratings []model.TeamWeekRating) ([]model.GameFeatureVector, error) {
	if len(games) == 0 {
		return nil, ErrNoGames
	}
	start := time.Now()

	byKey := make(map[ratingKey]*model.TeamWeekRating, len(ratings))
	for i := range ratings {
		r := &ratings[i]
		k := ratingKey{r.Season, r.Week, r.GameID, b.normalizer.Normalize(r.Team)}
		if _, dup := byKey[k]; dup {
			return nil, fmt.Errorf("%w: rating %s/%d/%d/%s", ErrDuplicateKey, k.team, k.season, k.week, k.gameID)
		}
		byKey[k] = r
	}

	signals := make(map[contextKey]model.ContextSignal, len(b.context))
	for _, s := range b.context {
		k := contextKey{s.GameID, b.normalizer.Normalize(s.Team)}
		if _, dup := signals[k]; dup {
			return nil, fmt.Errorf("%w: context %s/%s", ErrDuplicateKey, k.gameID, k.team)
		}
		signals[k] = s
	}

	lines := make(map[string]model.BettingLine, len(b.betting))
	for _, l := range b.betting {
		if _, dup := lines[l.GameID]; dup {
			return nil, fmt.Errorf("%w: betting line %s", ErrDuplicateKey, l.GameID)
		}
		lines[l.GameID] = l
	}

	missing := map[string]int{}
	out := make([]model.GameFeatureVector, len(games))
	for i := range games {
		g := &games[i]
		home := b.normalizer.Normalize(g.HomeTeam)
		away := b.normalizer.Normalize(g.AwayTeam)
		if g.GameID == "" || home == "" || away == "" {
			return nil, fmt.Errorf("%w: row %d (game %q, home %q, away %q)", ErrMalformedGame, i, g.GameID, g.HomeTeam, g.AwayTeam)
		}

		v := model.GameFeatureVector{
			GameID:   g.GameID,
			Season:   g.Season,
			Week:     g.Week,
			HomeTeam: home,
			AwayTeam: away,
		}

		h := byKey[ratingKey{g.Season, g.Week, g.GameID, home}]
		a := byKey[ratingKey{g.Season, g.Week, g.GameID, away}]
		if h != nil && a != nil {
			v.NetDiff = h.NetRating.Sub(a.NetRating)
			v.OffDiff = h.RollingOffense.Sub(a.RollingOffense)
			v.DefDiff = h.RollingDefense.Sub(a.RollingDefense)
		}

		hs, hok := signals[contextKey{g.GameID, home}]
		as, aok := signals[contextKey{g.GameID, away}]
		if hok && aok {
			v.RestDiff = hs.RestDays.Sub(as.RestDays)
			v.TravelDiffKm = hs.TravelKm.Sub(as.TravelKm)
		}
		if hok || aok {
			dome := 0.0
			if hs.DomeLike || as.DomeLike {
				dome = 1
			}
			v.DomeAny = model.Some(dome)
		}

		if l, ok := lines[g.GameID]; ok {
			v.ClosingSpread = l.ClosingSpread
			v.ClosingTotal = l.ClosingTotal
		}

		for _, name := range model.ExtendedFeatures {
			if f, _ := v.Feature(name); !f.Valid {
				missing[name]++
			}
		}
		out[i] = v
	}

	metrics.RecordFeatureVectors(len(out))
	for _, name := range model.ExtendedFeatures {
		metrics.RecordFeatureMissing(name, missing[name])
	}
	b.logger.Info(ctx, "feature vectors built",
		logger.Int("games", len(out)),
		logger.Int("missing_net_diff", missing[model.FeatureNetDiff]),
		logger.Duration("took", time.Since(start)),
	)
	return out, nil
}
