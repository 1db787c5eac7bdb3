package matching

import (
	"github.com/okian/hydrater/internal/domain/compat"
	"github.com/okian/hydrater/pkg/logger"
)

// Option applies a configuration option to the Finder.
type Option func(*Finder)

// WithDirectory sets the candidate pool used by FindForUser.
func WithDirectory(d CandidateSource) Option {
	return func(f *Finder) {
		if d != nil {
			f.directory = d
		}
	}
}

// WithScorer replaces the default compatibility engine.
func WithScorer(s compat.Scorer) Option {
	return func(f *Finder) {
		if s != nil {
			f.scorer = s
		}
	}
}

// WithThresholds sets the inclusive match thresholds.
func WithThresholds(t Thresholds) Option {
	return func(f *Finder) {
		f.thresholds = t
	}
}

// WithConcurrency bounds concurrent candidate fetches.
func WithConcurrency(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Finder) {
		if l != nil {
			f.logger = l
		}
	}
}
