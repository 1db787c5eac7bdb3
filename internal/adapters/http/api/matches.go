package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/hydrater/internal/domain/types"
	"github.com/okian/hydrater/pkg/logger"
)

// MatchesDependencies defines the interface for match lookups.
type MatchesDependencies interface {
	Matches(ctx context.Context, userID string, limit int) ([]types.MatchEntry, error)
}

// MatchesHandler handles match list requests.
type MatchesHandler struct {
	deps     MatchesDependencies
	maxLimit int
	logger   logger.Logger
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchesDependencies, maxLimit int, l logger.Logger) *MatchesHandler {
	return &MatchesHandler{deps: deps, maxLimit: maxLimit, logger: l}
}

type matchesResponse struct {
	UserID  string             `json:"user_id"`
	Matches []types.MatchEntry `json:"matches"`
}

// HandleGetMatches handles GET /matches/{user_id}?limit=N requests.
// The limit defaults to, and is capped at, the configured maximum.
func (h *MatchesHandler) HandleGetMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matches"
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	n := h.maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		n = min(v, h.maxLimit)
	}

	matches, err := h.deps.Matches(r.Context(), userID, n)
	if err != nil {
		writeUpstreamError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{UserID: userID, Matches: matches})
}
