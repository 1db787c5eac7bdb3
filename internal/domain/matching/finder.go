// Package matching ranks candidate users by rating compatibility.
package matching

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hydrater/internal/domain/compat"
	"github.com/okian/hydrater/internal/domain/model"
	"github.com/okian/hydrater/pkg/logger"
	"github.com/okian/hydrater/pkg/metrics"
)

// Default finder configuration constants.
const (
	DefaultMinCompatibility = 0.3
	DefaultMinConfidence    = 0.2
	defaultConcurrency      = 8
	nanosecondsPerMs        = 1e6

	// scoreTolerance absorbs floating-point error at the inclusive bounds.
	scoreTolerance = 1e-9
)

// RatingSource fetches one user's ratings.
type RatingSource interface {
	Ratings(ctx context.Context, userID string) (model.RatingSet, error)
}

// CandidateSource lists users with at least one rating, minus exclude.
type CandidateSource interface {
	Candidates(ctx context.Context, exclude string) ([]model.Profile, error)
}

// Thresholds are the inclusive lower bounds a score must meet to match.
type Thresholds struct {
	MinCompatibility float64
	MinConfidence    float64
}

// DefaultThresholds returns compatibility 0.3 and confidence 0.2.
func DefaultThresholds() Thresholds {
	return Thresholds{MinCompatibility: DefaultMinCompatibility, MinConfidence: DefaultMinConfidence}
}

// Accept reports whether s qualifies as a match. Pairs without a shared
// fountain never qualify.
func (t Thresholds) Accept(s model.Score) bool {
	return s.SharedFountains > 0 &&
		s.Overall >= t.MinCompatibility-scoreTolerance &&
		s.Confidence >= t.MinConfidence-scoreTolerance
}

// Finder scores a user against a candidate pool and ranks the matches.
// It keeps no per-request state and is safe for concurrent use.
type Finder struct {
	ratings     RatingSource
	directory   CandidateSource
	scorer      compat.Scorer
	thresholds  Thresholds
	concurrency int
	logger      logger.Logger
}

// New creates a Finder reading ratings from ratings.
func New(ratings RatingSource, opts ...Option) *Finder {
	f := &Finder{
		ratings:     ratings,
		scorer:      compat.New(),
		thresholds:  DefaultThresholds(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("match-finder")
	}
	return f
}

// FindForUser pulls the candidate pool from the directory, ranks it and keeps
// the best limit matches. limit <= 0 keeps every match.
func (f *Finder) FindForUser(ctx context.Context, userID string, limit int) ([]model.Match, error) {
	if f.directory == nil {
		return nil, ErrNoDirectory
	}
	pool, err := f.directory.Candidates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list candidates for %s: %w", userID, err)
	}
	return f.find(ctx, userID, pool, limit)
}

// Find scores userID against every candidate and returns the matches sorted
// by overall compatibility, highest first, ties by user id.
//
// Candidates whose ratings cannot be fetched, including fetches cut short by
// ctx, are logged and skipped. The target user and repeated candidate ids are
// ignored.
func (f *Finder) Find(ctx context.Context, userID string, candidates []model.Profile) ([]model.Match, error) {
	return f.find(ctx, userID, candidates, 0)
}

func (f *Finder) find(ctx context.Context, userID string, candidates []model.Profile, limit int) ([]model.Match, error) {
	start := time.Now()

	target, err := f.ratings.Ratings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTargetRatings, userID, err)
	}

	pool := uniqueCandidates(userID, candidates)
	found := make([]*model.Match, len(pool))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, p := range pool {
		g.Go(func() error {
			found[i] = f.score(ctx, target, p)
			return nil
		})
	}
	_ = g.Wait() // workers never fail; fetch errors become skips

	matches := make([]model.Match, 0, len(found))
	for _, m := range found {
		if m != nil {
			matches = append(matches, *m)
		}
	}
	slices.SortFunc(matches, func(a, b model.Match) int {
		if c := cmp.Compare(b.Score.Overall, a.Score.Overall); c != 0 {
			return c
		}
		return strings.Compare(a.Profile.UserID, b.Profile.UserID)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	elapsed := time.Since(start)
	metrics.RecordMatchRequest(len(matches), float64(elapsed.Nanoseconds())/nanosecondsPerMs)
	f.logger.Debug(ctx, "match list computed",
		logger.String("user_id", userID),
		logger.Int("candidates", len(pool)),
		logger.Int("matches", len(matches)),
		logger.Duration("elapsed", elapsed),
	)
	return matches, nil
}

// score fetches one candidate and returns a match, or nil when the candidate
// was skipped or fell below the thresholds.
func (f *Finder) score(ctx context.Context, target model.RatingSet, p model.Profile) *model.Match {
	if err := ctx.Err(); err != nil {
		f.skip(ctx, p, err)
		return nil
	}
	set, err := f.ratings.Ratings(ctx, p.UserID)
	if err != nil {
		f.skip(ctx, p, err)
		return nil
	}

	s := f.scorer.Compute(target, set)
	metrics.RecordCompatibilityComputation()
	if !f.thresholds.Accept(s) {
		return nil
	}
	return &model.Match{Profile: p, Score: s}
}

func (f *Finder) skip(ctx context.Context, p model.Profile, err error) {
	reason := "store_error"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = "cancelled"
	}
	metrics.RecordCandidateFetchFailure(reason)
	f.logger.Warn(ctx, "skipping candidate",
		logger.String("candidate_id", p.UserID),
		logger.String("reason", reason),
		logger.Error(err),
	)
}

// Compatibility scores two users directly, without thresholds.
func (f *Finder) Compatibility(ctx context.Context, userA, userB string) (model.Score, error) {
	a, err := f.ratings.Ratings(ctx, userA)
	if err != nil {
		return model.Score{}, fmt.Errorf("ratings of %s: %w", userA, err)
	}
	b, err := f.ratings.Ratings(ctx, userB)
	if err != nil {
		return model.Score{}, fmt.Errorf("ratings of %s: %w", userB, err)
	}
	metrics.RecordCompatibilityComputation()
	return f.scorer.Compute(a, b), nil
}

func uniqueCandidates(userID string, candidates []model.Profile) []model.Profile {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.Profile, 0, len(candidates))
	for _, p := range candidates {
		if p.UserID == "" || p.UserID == userID {
			continue
		}
		if _, dup := seen[p.UserID]; dup {
			continue
		}
		seen[p.UserID] = struct{}{}
		out = append(out, p)
	}
	return out
}
