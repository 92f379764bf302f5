package features

import (
	"errors"
	"fmt"

	"github.com/okian/seasonsim/internal/domain/model"
)

// Sentinel kinds for feature builder errors.
var (
	ErrNoGames       = fmt.Errorf("no games to build features for: %w", model.ErrEmptyInput)
	ErrMalformedGame = errors.New("malformed game")
	ErrDuplicateKey  = fmt.Errorf("duplicate join key: %w", model.ErrConfiguration)
)
