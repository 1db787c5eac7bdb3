package loadgen

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/hydrater/pkg/logger"
)

// verify fetches the match lists of a sample of users and checks that each
// is ranked, self-free and within score bounds.
func verify(ctx context.Context, c *client, cfg *Config, ds Dataset, stats *Stats) error {
	users := make([]string, 0, len(ds.Taste))
	for id := range ds.Taste {
		users = append(users, id)
	}
	slices.Sort(users)
	if cfg.SampleUsers > 0 && cfg.SampleUsers < len(users) {
		users = users[:cfg.SampleUsers]
	}

	for _, userID := range users {
		var resp matchesResponse
		if err := c.getJSON(ctx, "/matches/"+userID, &resp); err != nil {
			return fmt.Errorf("matches of %s: %w", userID, err)
		}
		if err := checkRanking(userID, resp.Matches); err != nil {
			return err
		}
		stats.UsersChecked++
		stats.MatchesSeen += len(resp.Matches)
		for _, m := range resp.Matches {
			if ds.Taste[m.UserID] == ds.Taste[userID] {
				stats.SameTaste++
			}
		}
	}

	logger.Get().Named("loadgen").Debug(ctx, "match lists verified", logger.Int("users", stats.UsersChecked))
	return nil
}

// checkRanking reports the first rule a match list breaks.
func checkRanking(userID string, matches []Match) error {
	for i, m := range matches {
		switch {
		case m.UserID == userID:
			return fmt.Errorf("%w: %s matched with itself", ErrVerification, userID)
		case m.Rank != i+1:
			return fmt.Errorf("%w: %s rank %d at position %d", ErrVerification, userID, m.Rank, i+1)
		case m.Compatibility < 0 || m.Compatibility > 1, m.Confidence < 0 || m.Confidence > 1:
			return fmt.Errorf("%w: %s score out of range for %s", ErrVerification, userID, m.UserID)
		case m.SharedFountains == 0:
			return fmt.Errorf("%w: %s matched %s without shared fountains", ErrVerification, userID, m.UserID)
		}
		if i == 0 {
			continue
		}
		prev := matches[i-1]
		if prev.Compatibility < m.Compatibility ||
			(prev.Compatibility == m.Compatibility && prev.UserID > m.UserID) {
			return fmt.Errorf("%w: %s list out of order at rank %d", ErrVerification, userID, m.Rank)
		}
	}
	return nil
}
