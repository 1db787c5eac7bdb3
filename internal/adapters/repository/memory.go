package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/okian/hydrater/internal/domain/model"
)

type userRecord struct {
	displayName string
	ratings     model.RatingSet
}

// MemoryStore keeps ratings in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*userRecord
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*userRecord)}
}

// Upsert stores the submission's rating, replacing any earlier rating of the
// same fountain by the same user.
func (s *MemoryStore) Upsert(_ context.Context, sub model.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec, ok := s.users[sub.UserID]
	if !ok {
		rec = &userRecord{ratings: model.RatingSet{}}
		s.users[sub.UserID] = rec
	}
	if sub.DisplayName != "" {
		rec.displayName = sub.DisplayName
	}
	rec.ratings[sub.Rating.FountainID] = sub.Rating
	return nil
}

// Ratings returns a copy of the user's ratings.
func (s *MemoryStore) Ratings(ctx context.Context, userID string) (model.RatingSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rec, ok := s.users[userID]
	if !ok || len(rec.ratings) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	out := make(model.RatingSet, len(rec.ratings))
	for id, r := range rec.ratings {
		out[id] = r
	}
	return out, nil
}

// Candidates lists every rater except exclude.
func (s *MemoryStore) Candidates(_ context.Context, exclude string) ([]model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.Profile, 0, len(s.users))
	for id, rec := range s.users {
		if id == exclude || len(rec.ratings) == 0 {
			continue
		}
		out = append(out, model.Profile{
			UserID:      id,
			DisplayName: rec.displayName,
			RatingCount: len(rec.ratings),
		})
	}
	slices.SortFunc(out, func(a, b model.Profile) int { return strings.Compare(a.UserID, b.UserID) })
	return out, nil
}

// Count returns the number of raters.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.users), nil
}

// Close marks the store closed; later calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
