// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/seasonsim/internal/domain/types"
	"github.com/okian/seasonsim/internal/domain/winprob"
	"github.com/okian/seasonsim/pkg/logger"
)

// SummaryDependencies defines the interface for summary reads.
type SummaryDependencies interface {
	Summary(ctx context.Context, season int, variant string, trials int) ([]SummaryRow, error)
}

// SummaryHandler handles season summary requests.
type SummaryHandler struct {
	deps   SummaryDependencies
	logger logger.Logger
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies, l logger.Logger) *SummaryHandler {
	return &SummaryHandler{deps: deps, logger: l}
}

// HandleGetSummary handles GET /summary?season=&variant=&trials= requests.
// variant defaults to base; a missing trials selects the latest run.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	season, err := strconv.Atoi(q.Get("season"))
	if err != nil || season < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: season must be a positive integer", ErrBadRequest))
		return
	}
	variant := strings.ToLower(strings.TrimSpace(q.Get("variant")))
	if variant == "" {
		variant = winprob.VariantBase
	}
	if _, err := winprob.FeaturesFor(variant); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	trials := 0
	if raw := q.Get("trials"); raw != "" {
		trials, err = strconv.Atoi(raw)
		if err != nil || trials < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: trials must be a positive integer", ErrBadRequest))
			return
		}
	}

	rows, err := h.deps.Summary(r.Context(), season, variant, trials)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		h.logger.Error(r.Context(), "summary read failed", logger.Int("season", season), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, types.SummaryEntries(rows))
}
