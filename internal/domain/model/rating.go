// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Rating bounds for every dimension.
const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// ErrInvalidRating marks a rating with a dimension outside [1,5].
var ErrInvalidRating = errors.New("invalid rating value")

// Dimension names a rating axis.
type Dimension string

// The four rated dimensions, in vector order.
const (
	Coldness   Dimension = "coldness"
	Pressure   Dimension = "pressure"
	Experience Dimension = "experience"
	YumFactor  Dimension = "yum_factor"
)

// Dimensions lists every dimension in the order used by Rating.Vector.
var Dimensions = [4]Dimension{Coldness, Pressure, Experience, YumFactor}

// Rating is one user's four-dimension rating of a fountain.
type Rating struct {
	FountainID string
	Coldness   int
	Pressure   int
	Experience int
	YumFactor  int
}

// Vector returns the rating values as (coldness, pressure, experience, yum_factor).
func (r Rating) Vector() [4]float64 {
	return [4]float64{
		float64(r.Coldness),
		float64(r.Pressure),
		float64(r.Experience),
		float64(r.YumFactor),
	}
}

// Validate reports ErrInvalidRating for the first dimension outside [1,5].
// A zero value counts as unrated and is also rejected.
func (r Rating) Validate() error {
	if r.FountainID == "" {
		return fmt.Errorf("%w: missing fountain id", ErrInvalidRating)
	}
	for i, v := range [4]int{r.Coldness, r.Pressure, r.Experience, r.YumFactor} {
		if v < MinRatingValue || v > MaxRatingValue {
			return fmt.Errorf("%w: %s=%d", ErrInvalidRating, Dimensions[i], v)
		}
	}
	return nil
}

// RatingSet maps fountain IDs to a single user's ratings.
type RatingSet map[string]Rating

// NewRatingSet builds a set from records, dropping invalid ones.
// When a fountain appears twice the later record wins.
func NewRatingSet(records ...Rating) RatingSet {
	set := make(RatingSet, len(records))
	for _, r := range records {
		if r.Validate() != nil {
			continue
		}
		set[r.FountainID] = r
	}
	return set
}

// Slice returns the ratings in unspecified order.
func (s RatingSet) Slice() []Rating {
	out := make([]Rating, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	return out
}

// Submission is a rating submitted by a user, as carried by the ingestion queue.
type Submission struct {
	SubmissionID string    // unique id for idempotency
	UserID       string    // rater
	DisplayName  string    // optional profile name, kept when empty
	Rating       Rating    // the rating itself
	ReceivedAt   time.Time // accept time
}

// Validate checks the rater id and the rating.
func (s Submission) Validate() error { //nolint:gocritic // hugeParam: value receiver matches channel use
	if s.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidRating)
	}
	return s.Rating.Validate()
}
