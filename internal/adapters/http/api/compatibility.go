package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/hydrater/internal/domain/types"
	"github.com/okian/hydrater/pkg/logger"
)

// CompatibilityDependencies defines the interface for pairwise scoring.
type CompatibilityDependencies interface {
	Compatibility(ctx context.Context, userA, userB string) (types.Score, error)
}

// CompatibilityHandler handles pairwise compatibility requests.
type CompatibilityHandler struct {
	deps   CompatibilityDependencies
	logger logger.Logger
}

// NewCompatibilityHandler creates a new compatibility handler.
func NewCompatibilityHandler(deps CompatibilityDependencies, l logger.Logger) *CompatibilityHandler {
	return &CompatibilityHandler{deps: deps, logger: l}
}

type compatibilityResponse struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
	types.Score
}

// HandleGetCompatibility handles GET /compatibility?a=&b= requests.
func (h *CompatibilityHandler) HandleGetCompatibility(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_compatibility"
	q := r.URL.Query()
	a, b := strings.TrimSpace(q.Get("a")), strings.TrimSpace(q.Get("b"))
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: both a and b are required", ErrBadRequest))
		return
	}
	if a == b {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: a and b must differ", ErrBadRequest))
		return
	}

	score, err := h.deps.Compatibility(r.Context(), a, b)
	if err != nil {
		writeUpstreamError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, compatibilityResponse{UserA: a, UserB: b, Score: score})
}
