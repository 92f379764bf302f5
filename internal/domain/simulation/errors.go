package simulation

import (
	"fmt"

	"github.com/okian/seasonsim/internal/domain/model"
	"github.com/okian/seasonsim/internal/domain/winprob"
)

// Sentinel kinds for simulation errors.
var (
	ErrNoGames = fmt.Errorf("no games for season: %w", model.ErrEmptyInput)
	ErrBadGame = fmt.Errorf("malformed game: %w", model.ErrConfiguration)
)

// MissingModelOutputError reports a slate game without a home-win probability.
type MissingModelOutputError = winprob.MissingModelOutputError
