// Package repository defines the rating store contracts and their adapters.
package repository

import (
	"context"

	"github.com/okian/hydrater/internal/domain/model"
)

// RatingReader fetches one user's ratings.
type RatingReader interface {
	// Ratings returns the user's ratings keyed by fountain id.
	// Returns ErrNotFound if the user has not rated anything.
	Ratings(ctx context.Context, userID string) (model.RatingSet, error)
}

// Directory lists users that can be matched.
type Directory interface {
	// Candidates returns every user with at least one rating except exclude,
	// ordered by user id.
	Candidates(ctx context.Context, exclude string) ([]model.Profile, error)
}

// Writer records rating submissions. A user holds at most one rating per
// fountain; a later submission replaces the earlier one.
type Writer interface {
	Upsert(ctx context.Context, sub model.Submission) error
}

// Store provides read/write access to ratings.
type Store interface {
	RatingReader
	Directory
	Writer

	// Count returns the number of users with at least one rating.
	Count(ctx context.Context) (int, error)

	Close() error
}
