// Package service wires the rating store, the ingestion pipeline and the
// match finder into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/hydrater/internal/adapters/mq/queue"
	workerpool "github.com/okian/hydrater/internal/adapters/mq/worker"
	"github.com/okian/hydrater/internal/adapters/repository"
	"github.com/okian/hydrater/internal/domain/compat"
	"github.com/okian/hydrater/internal/domain/dedupe"
	"github.com/okian/hydrater/internal/domain/matching"
	"github.com/okian/hydrater/internal/domain/model"
	"github.com/okian/hydrater/internal/domain/types"
	"github.com/okian/hydrater/pkg/logger"
	"github.com/okian/hydrater/pkg/metrics"
)

const (
	defaultQueueSize        = 10_000
	defaultDedupeSize       = 100_000
	defaultFetchConcurrency = 8
	defaultBreakerFailures  = 5
	defaultBreakerTimeout   = 30 * time.Second
	defaultDrainTimeout     = 10 * time.Second
	defaultStopTimeout      = 2 * time.Second
)

// Service implements the API dependencies for the matching system.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	breaker *repository.BreakerStore
	deduper dedupe.Deduper
	queue   eventqueue.Queue
	pool    *workerpool.Pool
	finder  *matching.Finder

	workerCount      int
	queueSize        int
	dedupeSize       int
	sqliteDSN        string
	injected         repository.Store
	fetchConcurrency int
	thresholds       matching.Thresholds
	weights          compat.Weights
	saturationCount  int
	breakerFailures  int
	breakerTimeout   time.Duration
	drainTimeout     time.Duration
	stopTimeout      time.Duration

	ingested atomic.Int64
	started  bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        defaultQueueSize,
		dedupeSize:       defaultDedupeSize,
		fetchConcurrency: defaultFetchConcurrency,
		thresholds:       matching.DefaultThresholds(),
		weights:          compat.DefaultWeights(),
		saturationCount:  compat.DefaultSaturationCount,
		breakerFailures:  defaultBreakerFailures,
		breakerTimeout:   defaultBreakerTimeout,
		drainTimeout:     defaultDrainTimeout,
		stopTimeout:      defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and starts the ingestion workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting hydrater service...")

	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	s.store = store
	s.breaker = repository.NewBreakerStore(store,
		repository.WithFailureThreshold(s.breakerFailures),
		repository.WithOpenTimeout(s.breakerTimeout),
	)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	engine := compat.New(
		compat.WithWeights(s.weights),
		compat.WithSaturationCount(s.saturationCount),
	)
	s.finder = matching.New(s.breaker,
		matching.WithDirectory(s.store),
		matching.WithScorer(engine),
		matching.WithThresholds(s.thresholds),
		matching.WithConcurrency(s.fetchConcurrency),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store,
		workerpool.WithOnStored(func(model.Submission) { s.ingested.Add(1) }),
	)
	// Workers outlive the Start call; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "hydrater service started",
		logger.String("store", s.driver()),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("fetchConcurrency", s.fetchConcurrency),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch {
	case s.injected != nil:
		return s.injected, nil
	case s.sqliteDSN != "":
		st, err := repository.OpenSQLite(ctx, s.sqliteDSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpenStore, err)
		}
		return st, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func (s *Service) driver() string {
	switch {
	case s.injected != nil:
		return "custom"
	case s.sqliteDSN != "":
		return "sqlite"
	default:
		return "memory"
	}
}

// Stop drains pending submissions and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping hydrater service...")

	drainCtx, cancel := context.WithTimeout(ctx, s.drainTimeout)
	defer cancel()
	if err := s.pool.Shutdown(drainCtx); err != nil {
		s.logger.Warn(ctx, "ingestion workers did not drain", logger.Error(err))
		stopCtx, stopCancel := context.WithTimeout(ctx, s.stopTimeout)
		if err := s.pool.Stop(stopCtx); err != nil {
			s.logger.Error(ctx, "ingestion workers abandoned", logger.Error(err))
		}
		stopCancel()
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "hydrater service stopped")
}

// SeenAndRecord atomically checks if a submission id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	if s.deduper == nil {
		return false
	}
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordSubmissionDuplicate()
	}
	return seen
}

// Unrecord forgets a submission id so a rejected submission can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if s.deduper == nil {
		return
	}
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered submission ids.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue hands a submission to the ingestion workers. It returns
// eventqueue.ErrFull on backpressure.
func (s *Service) Enqueue(ctx context.Context, sub model.Submission) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	if err := sub.Validate(); err != nil {
		metrics.RecordRatingInvalid()
		return err
	}
	if sub.ReceivedAt.IsZero() {
		sub.ReceivedAt = time.Now().UTC()
	}

	if err := s.queue.Offer(ctx, sub); err != nil {
		s.logger.Debug(ctx, "submission rejected",
			logger.String("submission_id", sub.SubmissionID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// Ratings returns the user's ratings ordered by fountain id.
func (s *Service) Ratings(ctx context.Context, userID string) ([]types.RatingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	set, err := s.store.Ratings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return types.FromRatings(set), nil
}

// Matches ranks every other rater against userID. limit <= 0 returns all matches.
func (s *Service) Matches(ctx context.Context, userID string, limit int) ([]types.MatchEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	matches, err := s.finder.FindForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return types.FromMatches(matches), nil
}

// Compatibility scores two users against each other.
func (s *Service) Compatibility(ctx context.Context, userA, userB string) (types.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Score{}, ErrNotStarted
	}
	score, err := s.finder.Compatibility(ctx, userA, userB)
	if err != nil {
		return types.Score{}, err
	}
	return types.FromScore(score), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Started:          s.started,
		StoreDriver:      s.driver(),
		WorkerCount:      s.workerCount,
		QueueCapacity:    s.queueSize,
		FetchConcurrency: s.fetchConcurrency,
		RatingsIngested:  s.ingested.Load(),
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats.WorkerCount = s.pool.Size()
	stats.QueueLength = s.queue.Len(ctx)
	stats.DedupeEntries = s.deduper.Size()
	stats.BreakerState = s.breaker.State()

	total, err := s.store.Count(ctx)
	if err != nil && !errors.Is(err, repository.ErrClosed) {
		s.logger.Warn(ctx, "count raters failed", logger.Error(err))
	}
	stats.TotalRaters = total
	metrics.UpdateTotalRaters(total)
	return stats
}
