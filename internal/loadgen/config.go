// Package loadgen seeds a running service with synthetic raters and checks
// the match lists it serves.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Users          int           // Number of synthetic raters
	Fountains      int           // Size of the fountain catalogue
	RatingsPerUser int           // Fountains each rater rates
	Tastes         int           // Number of taste clusters raters are drawn from
	Noise          int           // Max per-dimension deviation from the cluster taste
	Workers        int           // Concurrent HTTP submitters
	Timeout        time.Duration // HTTP request timeout
	SettleTimeout  time.Duration // How long to wait for ingestion to catch up
	SampleUsers    int           // Users whose match lists are verified
	Seed           uint64        // Generator seed; equal seeds give equal runs
	OutputFile     string        // Optional JSON dump of generated ratings
}

// Rating is the POST /ratings payload.
type Rating struct {
	SubmissionID string `json:"submission_id"`
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name,omitempty"`
	FountainID   string `json:"fountain_id"`
	Coldness     int    `json:"coldness"`
	Pressure     int    `json:"pressure"`
	Experience   int    `json:"experience"`
	YumFactor    int    `json:"yum_factor"`
}

// Match mirrors one row of GET /matches/{user_id}.
type Match struct {
	Rank            int     `json:"rank"`
	UserID          string  `json:"user_id"`
	Compatibility   float64 `json:"compatibility"`
	Correlation     float64 `json:"correlation"`
	SharedFountains int     `json:"shared_fountains"`
	Confidence      float64 `json:"confidence"`
}

type matchesResponse struct {
	UserID  string  `json:"user_id"`
	Matches []Match `json:"matches"`
}

type statsResponse struct {
	TotalRaters     int   `json:"total_raters"`
	RatingsIngested int64 `json:"ratings_ingested"`
}

// Stats holds run statistics.
type Stats struct {
	Generated     int
	Accepted      int64
	Duplicate     int64
	Backpressured int64
	Failed        int64
	UsersChecked  int
	MatchesSeen   int
	SameTaste     int // matches whose rater shares the requester's taste cluster
	Duration      time.Duration
}
