package app

import (
	"fmt"

	"github.com/okian/seasonsim/internal/domain/model"
)

// Sentinel kinds for pipeline errors.
var (
	ErrNoStore    = fmt.Errorf("stage needs a result store: %w", model.ErrConfiguration)
	ErrNoSchedule = fmt.Errorf("schedule_file is not set: %w", model.ErrConfiguration)
	ErrNoPlays    = fmt.Errorf("plays_file is not set: %w", model.ErrConfiguration)
	ErrNoSeason   = fmt.Errorf("schedule has no seasons: %w", model.ErrEmptyInput)
	ErrNoFeatures = fmt.Errorf("no stored features for season: %w", model.ErrEmptyInput)
)
