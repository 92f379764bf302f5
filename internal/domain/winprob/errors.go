package winprob

import (
	"fmt"

	"github.com/okian/seasonsim/internal/domain/model"
)

// Sentinel kinds for win-probability errors.
var (
	ErrUndefinedFeature = fmt.Errorf("undefined feature under fill policy none: %w", model.ErrConfiguration)
	ErrUnknownFeature   = fmt.Errorf("unknown model feature: %w", model.ErrConfiguration)
	ErrFillPolicy       = fmt.Errorf("unknown fill policy: %w", model.ErrConfiguration)
	ErrVariant          = fmt.Errorf("unknown model variant: %w", model.ErrConfiguration)
)

// MissingModelOutputError reports a game without a home-win probability.
// There is no sensible default probability, so it is fatal.
type MissingModelOutputError struct {
	GameID string
}

func (e *MissingModelOutputError) Error() string {
	return "missing home-win probability for game " + e.GameID
}

// Unwrap marks the error as a configuration defect.
func (e *MissingModelOutputError) Unwrap() error { return model.ErrConfiguration }
