package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrMixedSummary = errors.New("summary rows span more than one run key")
	ErrOpenStore    = errors.New("open store")
)
