package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/hydrater/internal/domain/model"
	"github.com/okian/hydrater/pkg/logger"
	"github.com/okian/hydrater/pkg/metrics"
)

// Default breaker configuration constants.
const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
	defaultHalfOpenRequests = 1
)

// BreakerOption applies a configuration option to the BreakerStore.
type BreakerOption func(*breakerSettings)

type breakerSettings struct {
	failureThreshold uint32
	openTimeout      time.Duration
	logger           logger.Logger
}

// WithFailureThreshold trips the breaker after n consecutive read failures.
func WithFailureThreshold(n int) BreakerOption {
	return func(s *breakerSettings) {
		if n > 0 {
			s.failureThreshold = uint32(n)
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before a probe.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(s *breakerSettings) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// WithBreakerLogger sets a custom logger.
func WithBreakerLogger(l logger.Logger) BreakerOption {
	return func(s *breakerSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// BreakerStore guards a Store's rating reads with a circuit breaker, so a
// failing backend turns per-candidate fetches into fast failures instead of
// a pile of slow ones. Writes and directory listings pass straight through.
type BreakerStore struct {
	Store
	cb *gobreaker.CircuitBreaker[model.RatingSet]
}

// NewBreakerStore wraps inner.
func NewBreakerStore(inner Store, opts ...BreakerOption) *BreakerStore {
	st := breakerSettings{
		failureThreshold: defaultFailureThreshold,
		openTimeout:      defaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logger == nil {
		st.logger = logger.Get().Named("store-breaker")
	}

	cb := gobreaker.NewCircuitBreaker[model.RatingSet](gobreaker.Settings{
		Name:        "rating-store",
		MaxRequests: defaultHalfOpenRequests,
		Timeout:     st.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= st.failureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(to.String())
			st.logger.Warn(context.Background(), "rating store breaker changed state",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return &BreakerStore{Store: inner, cb: cb}
}

// Ratings reads through the breaker. While the breaker is open it fails
// immediately with ErrBreaker.
func (b *BreakerStore) Ratings(ctx context.Context, userID string) (model.RatingSet, error) {
	set, err := b.cb.Execute(func() (model.RatingSet, error) {
		return b.Store.Ratings(ctx, userID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrBreaker, err)
	}
	return set, err
}

// State reports the breaker state: closed, half-open or open.
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}
