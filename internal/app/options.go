package service

import (
	"time"

	"github.com/okian/hydrater/internal/adapters/repository"
	"github.com/okian/hydrater/internal/domain/compat"
	"github.com/okian/hydrater/internal/domain/matching"
	"github.com/okian/hydrater/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending submissions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects an already opened store. The service closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.injected = st
		}
	}
}

// WithSQLite makes Start open a SQLite store at dsn.
func WithSQLite(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.sqliteDSN = dsn
		}
	}
}

// WithFetchConcurrency bounds the concurrent candidate fetches per match request.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// WithThresholds sets the match inclusion thresholds.
func WithThresholds(t matching.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
	}
}

// WithWeights sets the per-dimension similarity weights.
func WithWeights(w compat.Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithSaturationCount sets the shared-fountain count at which confidence saturates.
func WithSaturationCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.saturationCount = n
		}
	}
}

// WithBreaker configures the circuit breaker around rating fetches.
func WithBreaker(failures int, openTimeout time.Duration) Option {
	return func(s *Service) {
		if failures > 0 {
			s.breakerFailures = failures
		}
		if openTimeout > 0 {
			s.breakerTimeout = openTimeout
		}
	}
}

// WithShutdownTimeouts bounds how long Stop waits for the queue to drain and,
// failing that, for the workers to quit.
func WithShutdownTimeouts(drain, stop time.Duration) Option {
	return func(s *Service) {
		if drain > 0 {
			s.drainTimeout = drain
		}
		if stop > 0 {
			s.stopTimeout = stop
		}
	}
}
