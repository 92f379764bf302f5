package model

import "errors"

// Error taxonomy shared by every stage of the pipeline.
var (
	// ErrConfiguration marks setup defects: unknown team codes, missing
	// required tables or columns, invalid settings. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptyInput marks inputs that would make any output meaningless,
	// such as a season with no games.
	ErrEmptyInput = errors.New("empty input")
)
