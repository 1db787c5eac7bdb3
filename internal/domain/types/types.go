// Package types contains the read shapes shared by the service and the HTTP API.
package types

import (
	"slices"
	"strings"

	"github.com/okian/hydrater/internal/domain/compat"
	"github.com/okian/hydrater/internal/domain/model"
)

// Score is the JSON form of a compatibility score.
type Score struct {
	Overall            float64 `json:"compatibility"`
	Correlation        float64 `json:"correlation"`
	WeightedSimilarity float64 `json:"weighted_similarity"`
	SharedFountains    int     `json:"shared_fountains"`
	Confidence         float64 `json:"confidence"`
}

// MatchEntry is one row of a ranked match list.
type MatchEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	RatingCount int    `json:"rating_count"`
	Score
}

// RatingEntry is one fountain rating of a user.
type RatingEntry struct {
	FountainID string  `json:"fountain_id"`
	Coldness   int     `json:"coldness"`
	Pressure   int     `json:"pressure"`
	Experience int     `json:"experience"`
	YumFactor  int     `json:"yum_factor"`
	Average    float64 `json:"average"`
}

// Stats summarises the running service.
type Stats struct {
	Started          bool   `json:"started"`
	StoreDriver      string `json:"store_driver"`
	WorkerCount      int    `json:"worker_count"`
	QueueCapacity    int    `json:"queue_capacity"`
	QueueLength      int    `json:"queue_length"`
	DedupeEntries    int64  `json:"dedupe_entries"`
	TotalRaters      int    `json:"total_raters"`
	RatingsIngested  int64  `json:"ratings_ingested"`
	BreakerState     string `json:"breaker_state,omitempty"`
	FetchConcurrency int    `json:"fetch_concurrency"`
}

// FromScore converts a model score.
func FromScore(s model.Score) Score {
	return Score{
		Overall:            s.Overall,
		Correlation:        s.Correlation,
		WeightedSimilarity: s.WeightedSimilarity,
		SharedFountains:    s.SharedFountains,
		Confidence:         s.Confidence,
	}
}

// FromMatches numbers matches from rank 1 in their given order.
func FromMatches(matches []model.Match) []MatchEntry {
	out := make([]MatchEntry, len(matches))
	for i, m := range matches {
		out[i] = MatchEntry{
			Rank:        i + 1,
			UserID:      m.Profile.UserID,
			DisplayName: m.Profile.DisplayName,
			RatingCount: m.Profile.RatingCount,
			Score:       FromScore(m.Score),
		}
	}
	return out
}

// FromRatings lists a rating set ordered by fountain id.
func FromRatings(set model.RatingSet) []RatingEntry {
	out := make([]RatingEntry, 0, len(set))
	for _, r := range set {
		out = append(out, RatingEntry{
			FountainID: r.FountainID,
			Coldness:   r.Coldness,
			Pressure:   r.Pressure,
			Experience: r.Experience,
			YumFactor:  r.YumFactor,
			Average:    compat.RatingMean(r),
		})
	}
	slices.SortFunc(out, func(a, b RatingEntry) int {
		return strings.Compare(a.FountainID, b.FountainID)
	})
	return out
}
