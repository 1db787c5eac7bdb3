package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/okian/hydrater/pkg/logger"
)

const (
	maxSubmitAttempts = 5
	backpressureDelay = 20 * time.Millisecond
	settlePoll        = 50 * time.Millisecond
	outputPermission  = 0o600
)

// ErrVerification marks a match list that breaks the ranking rules.
var ErrVerification = errors.New("match verification failed")

// Run seeds the service, waits for ingestion and verifies sampled match lists.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	start := time.Now()
	log := logger.Get().Named("loadgen")
	c := newClient(cfg.BaseURL, cfg.Timeout)
	stats := &Stats{}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("fountains", cfg.Fountains),
		logger.Int("workers", cfg.Workers),
	)

	if err := c.getJSON(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	ds := Generate(cfg)
	stats.Generated = len(ds.Ratings)
	if cfg.OutputFile != "" {
		if err := save(cfg.OutputFile, ds.Ratings); err != nil {
			log.Warn(ctx, "failed to save ratings", logger.Error(err))
		}
	}

	if err := submit(ctx, c, cfg.Workers, ds.Ratings, stats); err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}
	if err := settle(ctx, c, cfg, stats); err != nil {
		return stats, err
	}
	if err := verify(ctx, c, cfg, ds, stats); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "load run completed",
		logger.Int("generated", stats.Generated),
		logger.Int("accepted", int(stats.Accepted)),
		logger.Int("duplicate", int(stats.Duplicate)),
		logger.Int("backpressured", int(stats.Backpressured)),
		logger.Int("failed", int(stats.Failed)),
		logger.Int("usersChecked", stats.UsersChecked),
		logger.Int("matchesSeen", stats.MatchesSeen),
		logger.Int("sameTaste", stats.SameTaste),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// submit posts every rating with at most workers requests in flight,
// retrying on backpressure.
func submit(ctx context.Context, c *client, workers int, ratings []Rating, stats *Stats) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i := range ratings {
		r := ratings[i]
		g.Go(func() error {
			for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
				code, err := c.postRating(gctx, r)
				if err != nil {
					return err
				}
				switch code {
				case http.StatusAccepted:
					atomic.AddInt64(&stats.Accepted, 1)
					return nil
				case http.StatusOK:
					atomic.AddInt64(&stats.Duplicate, 1)
					return nil
				case http.StatusTooManyRequests:
					atomic.AddInt64(&stats.Backpressured, 1)
					time.Sleep(backpressureDelay << attempt)
				default:
					atomic.AddInt64(&stats.Failed, 1)
					return nil
				}
			}
			atomic.AddInt64(&stats.Failed, 1)
			return nil
		})
	}
	return g.Wait()
}

// settle polls /stats until every accepted rating has been ingested.
func settle(ctx context.Context, c *client, cfg *Config, stats *Stats) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.SettleTimeout)
	defer cancel()

	for {
		var st statsResponse
		if err := c.getJSON(ctx, "/stats", &st); err == nil && st.RatingsIngested >= stats.Accepted {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ingestion did not settle: %w", ctx.Err())
		case <-time.After(settlePoll):
		}
	}
}

func save(path string, ratings []Rating) error {
	data, err := json.MarshalIndent(ratings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}
	if err := os.WriteFile(path, data, outputPermission); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
