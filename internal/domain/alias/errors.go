package alias

import (
	"fmt"

	"github.com/okian/seasonsim/internal/domain/model"
)

// Sentinel kinds for alias table errors.
var (
	ErrAliasCycle = fmt.Errorf("alias cycle: %w", model.ErrConfiguration)
	ErrAliasFile  = fmt.Errorf("alias file: %w", model.ErrConfiguration)
)
