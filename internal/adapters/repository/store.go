// Package repository persists derived tables: team-week ratings, game
// feature vectors and season simulation summaries.
package repository

import (
	"context"

	"github.com/okian/seasonsim/internal/domain/model"
)

// Store provides read/write access to derived tables.
type Store interface {
	// ReplaceRatings drops every stored rating and writes rows.
	ReplaceRatings(ctx context.Context, rows []model.TeamWeekRating) error
	// Ratings returns a team's ratings in chronological order. Season zero
	// means every season. Returns ErrNotFound when there are none.
	Ratings(ctx context.Context, team string, season int) ([]model.TeamWeekRating, error)

	// ReplaceFeatures drops every stored feature vector and writes rows.
	ReplaceFeatures(ctx context.Context, rows []model.GameFeatureVector) error
	// Features returns a season's vectors ordered by week and game id.
	Features(ctx context.Context, season int) ([]model.GameFeatureVector, error)

	// SaveSummary overwrites the summary of one (season, trials, variant)
	// run. All rows must share those keys.
	SaveSummary(ctx context.Context, rows []model.SeasonSimSummary) error
	// Summary returns a stored summary by descending average wins. trials
	// <= 0 selects the most recently saved run for the season and variant.
	Summary(ctx context.Context, season int, variant string, trials int) ([]model.SeasonSimSummary, error)

	Ping(ctx context.Context) error
	Close() error
}
