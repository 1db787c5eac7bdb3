package worker

import (
	"github.com/okian/hydrater/internal/domain/model"
	"github.com/okian/hydrater/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithOnStored registers a callback run after each successful upsert.
func WithOnStored(fn func(model.Submission)) Option {
	return func(w *InMemoryWorker) {
		w.onStored = fn
	}
}
