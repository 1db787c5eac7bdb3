package loadgen

import (
	"fmt"
	"math/rand/v2"
)

const (
	minValue = 1
	maxValue = 5
)

// Dataset is a generated community of raters.
type Dataset struct {
	Ratings []Rating
	Taste   map[string]int // user id -> taste cluster
}

// Generate builds a deterministic dataset from cfg.Seed. Raters of the same
// taste cluster rate fountains close to a shared per-fountain profile.
func Generate(cfg *Config) Dataset {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	tastes := max(cfg.Tastes, 1)
	perUser := min(cfg.RatingsPerUser, cfg.Fountains)

	// profiles[t][f] is cluster t's taste for fountain f.
	profiles := make([][][4]int, tastes)
	for t := range profiles {
		profiles[t] = make([][4]int, cfg.Fountains)
		for f := range profiles[t] {
			for d := range 4 {
				profiles[t][f][d] = minValue + rng.IntN(maxValue)
			}
		}
	}

	ds := Dataset{Taste: make(map[string]int, cfg.Users)}
	for u := range cfg.Users {
		userID := fmt.Sprintf("user-%04d", u)
		taste := u % tastes
		ds.Taste[userID] = taste

		for _, f := range rng.Perm(cfg.Fountains)[:perUser] {
			p := profiles[taste][f]
			ds.Ratings = append(ds.Ratings, Rating{
				SubmissionID: fmt.Sprintf("%s-f%04d-%d", userID, f, cfg.Seed),
				UserID:       userID,
				DisplayName:  fmt.Sprintf("Rater %d", u),
				FountainID:   fmt.Sprintf("fountain-%04d", f),
				Coldness:     jitter(rng, p[0], cfg.Noise),
				Pressure:     jitter(rng, p[1], cfg.Noise),
				Experience:   jitter(rng, p[2], cfg.Noise),
				YumFactor:    jitter(rng, p[3], cfg.Noise),
			})
		}
	}
	return ds
}

func jitter(rng *rand.Rand, v, noise int) int {
	if noise > 0 {
		v += rng.IntN(2*noise+1) - noise
	}
	return min(max(v, minValue), maxValue)
}
