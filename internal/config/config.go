// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns the defaults; Load layers a YAML file and env vars on top.
// - Validation failures wrap ErrInvalidConfig, loading failures ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// DimensionWeights configures the similarity weight of each rating dimension.
type DimensionWeights struct {
	Coldness   float64 `koanf:"coldness"`
	Pressure   float64 `koanf:"pressure"`
	Experience float64 `koanf:"experience"`
	YumFactor  float64 `koanf:"yum_factor"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory rating submission queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submission ids are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the rating store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// SQLiteDSN is the database path used by the sqlite driver.
	SQLiteDSN string `koanf:"sqlite_dsn"`

	// FetchConcurrency bounds concurrent candidate rating fetches per match request.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	// MinCompatibility and MinConfidence are the inclusive match thresholds.
	MinCompatibility float64 `koanf:"min_compatibility"`
	MinConfidence    float64 `koanf:"min_confidence"`

	// SaturationCount is the shared-fountain count at which confidence stops growing.
	SaturationCount int `koanf:"saturation_count"`

	// MaxMatchLimit caps GET /matches/{user}?limit.
	MaxMatchLimit int `koanf:"max_match_limit"`

	// DimensionWeights must sum to 1.
	DimensionWeights DimensionWeights `koanf:"dimension_weights"`

	// BreakerFailureThreshold trips the store breaker after this many consecutive failures.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold"`

	// BreakerTimeoutMS is how long the breaker stays open before probing.
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		EventQueueSize:   10_000,
		WorkerCount:      runtime.NumCPU() * 2,
		DedupeSize:       100_000,
		StoreDriver:      StoreMemory,
		SQLiteDSN:        "hydrater.db",
		FetchConcurrency: 8,
		MinCompatibility: 0.3,
		MinConfidence:    0.2,
		SaturationCount:  10,
		MaxMatchLimit:    100,
		DimensionWeights: DimensionWeights{
			Coldness:   0.30,
			Pressure:   0.25,
			Experience: 0.25,
			YumFactor:  0.20,
		},
		BreakerFailureThreshold: 5,
		BreakerTimeoutMS:        30_000,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && c.SQLiteDSN == "":
		return fmt.Errorf("%w: sqlite_dsn must not be empty", ErrInvalidConfig)
	case c.MinCompatibility < 0 || c.MinCompatibility > 1:
		return fmt.Errorf("%w: min_compatibility must be within [0,1]", ErrInvalidConfig)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("%w: min_confidence must be within [0,1]", ErrInvalidConfig)
	case c.MaxMatchLimit < 1:
		return fmt.Errorf("%w: max_match_limit must be positive", ErrInvalidConfig)
	}

	w := c.DimensionWeights
	if w.Coldness < 0 || w.Pressure < 0 || w.Experience < 0 || w.YumFactor < 0 {
		return fmt.Errorf("%w: dimension_weights must not be negative", ErrInvalidConfig)
	}
	if sum := w.Coldness + w.Pressure + w.Experience + w.YumFactor; sum < 0.999999 || sum > 1.000001 {
		return fmt.Errorf("%w: dimension_weights must sum to 1, got %.4f", ErrInvalidConfig, sum)
	}
	return nil
}
