package rating

import (
	"errors"
	"fmt"

	"github.com/okian/seasonsim/internal/domain/model"
)

// Sentinel kinds for rating engine errors.
var (
	ErrNoPlays       = fmt.Errorf("no plays: %w", model.ErrEmptyInput)
	ErrMalformedPlay = errors.New("malformed play")
)
