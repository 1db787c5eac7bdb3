package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/hydrater/internal/loadgen"
	"github.com/okian/hydrater/pkg/logger"
)

const (
	defaultUsers          = 500
	defaultFountains      = 60
	defaultRatingsPerUser = 15
	defaultTastes         = 5
	defaultSample         = 25
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	os.Exit(start())
}

func start() int {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users     = flag.Int("users", defaultUsers, "Number of synthetic raters")
		fountains = flag.Int("fountains", defaultFountains, "Number of fountains")
		perUser   = flag.Int("per-user", defaultRatingsPerUser, "Fountains rated by each rater")
		tastes    = flag.Int("tastes", defaultTastes, "Number of taste clusters")
		noise     = flag.Int("noise", 1, "Max per-dimension deviation from the cluster taste")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		timeout   = flag.Duration("timeout", 30*time.Second, "HTTP request timeout")
		settle    = flag.Duration("settle", time.Minute, "Max wait for ingestion to catch up")
		sample    = flag.Int("sample", defaultSample, "Users whose match lists are verified")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		output    = flag.String("output", "", "Optional file for the generated ratings")
		verbose   = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:        *baseURL,
		Users:          *users,
		Fountains:      *fountains,
		RatingsPerUser: *perUser,
		Tastes:         *tastes,
		Noise:          *noise,
		Workers:        *workers,
		Timeout:        *timeout,
		SettleTimeout:  *settle,
		SampleUsers:    *sample,
		Seed:           *seed,
		OutputFile:     *output,
	}
	if _, err := loadgen.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		return 1
	}
	return 0
}
