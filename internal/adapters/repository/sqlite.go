package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/hydrater/internal/domain/model"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS ratings (
	user_id     TEXT    NOT NULL REFERENCES users(user_id),
	fountain_id TEXT    NOT NULL,
	coldness    INTEGER NOT NULL CHECK (coldness BETWEEN 1 AND 5),
	pressure    INTEGER NOT NULL CHECK (pressure BETWEEN 1 AND 5),
	experience  INTEGER NOT NULL CHECK (experience BETWEEN 1 AND 5),
	yum_factor  INTEGER NOT NULL CHECK (yum_factor BETWEEN 1 AND 5),
	updated_ts  INTEGER NOT NULL,
	PRIMARY KEY (user_id, fountain_id)
);
`

// SQLiteStore persists ratings in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLite opens (and migrates) the database at dsn. Use ":memory:" for a
// throwaway database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Upsert writes the rating and, when given, the display name.
func (s *SQLiteStore) Upsert(ctx context.Context, sub model.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (user_id, display_name) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET display_name =
			CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE users.display_name END`,
		sub.UserID, sub.DisplayName,
	); err != nil {
		return s.wrap("upsert user", err)
	}

	r := sub.Rating
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ratings (user_id, fountain_id, coldness, pressure, experience, yum_factor, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, fountain_id) DO UPDATE SET
			coldness = excluded.coldness,
			pressure = excluded.pressure,
			experience = excluded.experience,
			yum_factor = excluded.yum_factor,
			updated_ts = excluded.updated_ts`,
		sub.UserID, r.FountainID, r.Coldness, r.Pressure, r.Experience, r.YumFactor, submissionTime(sub).Unix(),
	); err != nil {
		return s.wrap("upsert rating", err)
	}

	if err := tx.Commit(); err != nil {
		return s.wrap("commit upsert", err)
	}
	return nil
}

// Ratings loads the user's ratings. Rows that fail validation are dropped.
func (s *SQLiteStore) Ratings(ctx context.Context, userID string) (model.RatingSet, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT fountain_id, coldness, pressure, experience, yum_factor
		FROM ratings WHERE user_id = ?`, userID)
	if err != nil {
		return nil, s.wrap("query ratings", err)
	}
	defer rows.Close()

	var records []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.FountainID, &r.Coldness, &r.Pressure, &r.Experience, &r.YumFactor); err != nil {
			return nil, s.wrap("scan rating", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("iterate ratings", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	return model.NewRatingSet(records...), nil
}

// Candidates lists every rater except exclude.
func (s *SQLiteStore) Candidates(ctx context.Context, exclude string) ([]model.Profile, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.display_name, COUNT(r.fountain_id)
		FROM users u JOIN ratings r ON r.user_id = u.user_id
		WHERE u.user_id <> ?
		GROUP BY u.user_id, u.display_name
		ORDER BY u.user_id`, exclude)
	if err != nil {
		return nil, s.wrap("query candidates", err)
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.RatingCount); err != nil {
			return nil, s.wrap("scan candidate", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("iterate candidates", err)
	}
	return out, nil
}

// Count returns the number of raters.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user_id) FROM ratings`).Scan(&n); err != nil {
		return 0, s.wrap("count raters", err)
	}
	return n, nil
}

// Close closes the database; later calls return ErrClosed.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// wrap maps failures from a closed database, including calls that raced
// Close, to ErrClosed.
func (s *SQLiteStore) wrap(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) || s.closed.Load() {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return fmt.Errorf("sqlite %s: %w", op, err)
}

func submissionTime(sub model.Submission) time.Time {
	if sub.ReceivedAt.IsZero() {
		return time.Now()
	}
	return sub.ReceivedAt
}
