package teammeta

import (
	"fmt"

	"github.com/okian/seasonsim/internal/domain/model"
)

// UnknownTeamError reports a slate team with no metadata after normalization.
type UnknownTeamError struct {
	Team   string
	Season int
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team code after normalization: %s (season %d); add an alias or a team_meta row", e.Team, e.Season)
}

// Unwrap marks the error as a configuration defect.
func (e *UnknownTeamError) Unwrap() error { return model.ErrConfiguration }
