// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/seasonsim/internal/domain/alias"
	"github.com/okian/seasonsim/internal/domain/types"
	"github.com/okian/seasonsim/pkg/logger"
)

// RatingsDependencies defines the interface for rating reads.
type RatingsDependencies interface {
	Ratings(ctx context.Context, team string, season int) ([]RatingRow, error)
}

// RatingsHandler handles team rating requests.
type RatingsHandler struct {
	deps       RatingsDependencies
	normalizer *alias.Normalizer
	logger     logger.Logger
}

// NewRatingsHandler creates a new ratings handler. A nil normalizer only
// upper-cases codes.
func NewRatingsHandler(deps RatingsDependencies, n *alias.Normalizer, l logger.Logger) *RatingsHandler {
	return &RatingsHandler{deps: deps, normalizer: n, logger: l}
}

// HandleGetRatings handles GET /ratings/{team}?season= requests.
func (h *RatingsHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/ratings/")
	if strings.TrimSpace(path) == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: team is required", ErrBadRequest))
		return
	}
	team := h.normalizer.Normalize(path)

	season := 0
	if raw := r.URL.Query().Get("season"); raw != "" {
		var err error
		season, err = strconv.Atoi(raw)
		if err != nil || season < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: season must be a positive integer", ErrBadRequest))
			return
		}
	}

	rows, err := h.deps.Ratings(r.Context(), team, season)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		h.logger.Error(r.Context(), "ratings read failed", logger.String("team", team), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, types.RatingEntries(rows))
}
