package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/hydrater/internal/domain/dedupe"
	"github.com/okian/hydrater/internal/domain/model"
	"github.com/okian/hydrater/internal/domain/types"
	"github.com/okian/hydrater/pkg/logger"
)

const maxRatingBody = 1 << 16

var validate = validator.New()

// RatingsDependencies defines what the ratings endpoints need.
type RatingsDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, sub model.Submission) error
	Ratings(ctx context.Context, userID string) ([]types.RatingEntry, error)
}

// RatingsHandler handles rating submissions and reads.
type RatingsHandler struct {
	deps   RatingsDependencies
	logger logger.Logger
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingsDependencies, l logger.Logger) *RatingsHandler {
	return &RatingsHandler{deps: deps, logger: l}
}

// ratingRequest is the body of POST /ratings.
type ratingRequest struct {
	SubmissionID string `json:"submission_id" validate:"omitempty,max=128"`
	UserID       string `json:"user_id" validate:"required,max=128"`
	DisplayName  string `json:"display_name" validate:"omitempty,max=64"`
	FountainID   string `json:"fountain_id" validate:"required,max=128"`
	Coldness     int    `json:"coldness" validate:"min=1,max=5"`
	Pressure     int    `json:"pressure" validate:"min=1,max=5"`
	Experience   int    `json:"experience" validate:"min=1,max=5"`
	YumFactor    int    `json:"yum_factor" validate:"min=1,max=5"`
}

func (r *ratingRequest) normalize() {
	r.SubmissionID = strings.TrimSpace(r.SubmissionID)
	r.UserID = strings.TrimSpace(r.UserID)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.FountainID = strings.TrimSpace(r.FountainID)
}

func (r *ratingRequest) submission() model.Submission {
	return model.Submission{
		SubmissionID: r.SubmissionID,
		UserID:       r.UserID,
		DisplayName:  r.DisplayName,
		Rating: model.Rating{
			FountainID: r.FountainID,
			Coldness:   r.Coldness,
			Pressure:   r.Pressure,
			Experience: r.Experience,
			YumFactor:  r.YumFactor,
		},
		ReceivedAt: time.Now().UTC(),
	}
}

type ackResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
}

// HandlePostRating handles POST /ratings requests.
func (h *RatingsHandler) HandlePostRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rating"
	var req ratingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRatingBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	req.normalize()
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if req.SubmissionID == "" {
		req.SubmissionID = uuid.NewString()
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.SubmissionID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", SubmissionID: req.SubmissionID, Duplicate: true})
		return
	}

	if err := h.deps.Enqueue(r.Context(), req.submission()); err != nil {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.SubmissionID)
		writeUpstreamError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: req.SubmissionID})
}

type ratingsResponse struct {
	UserID  string              `json:"user_id"`
	Ratings []types.RatingEntry `json:"ratings"`
}

// HandleGetRatings handles GET /ratings/{user_id} requests.
func (h *RatingsHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ratings"
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	entries, err := h.deps.Ratings(r.Context(), userID)
	if err != nil {
		writeUpstreamError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingsResponse{UserID: userID, Ratings: entries})
}
