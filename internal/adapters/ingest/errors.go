package ingest

import (
	"errors"
	"fmt"

	"github.com/okian/seasonsim/internal/domain/model"
)

// Sentinel kinds for ingestion errors.
var (
	ErrMissingTable = fmt.Errorf("required input table not found: %w", model.ErrConfiguration)
	ErrMalformedRow = errors.New("malformed row")
)

// MissingColumnError reports a required column absent under every known name.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %s: missing required column %s", e.Table, e.Column)
}

// Unwrap marks the error as a configuration defect.
func (e *MissingColumnError) Unwrap() error { return model.ErrConfiguration }
