package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Initialize the Postgres prediction cache schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createPredictionCacheQuery := `
	CREATE TABLE IF NOT EXISTS prediction_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        departure_time BIGINT NOT NULL,
        duration_in_traffic_seconds INTEGER NOT NULL,
        duration_seconds INTEGER NOT NULL,
        distance_meters INTEGER NOT NULL,
        fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (origin, destination, departure_time)
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_prediction_cache_fetched_at
    ON prediction_cache(fetched_at);
	`

	statements := []string{
		createPredictionCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// PurgeExpired deletes entries older than maxAge and entries whose
// departure has already passed.
func PurgeExpired(ctx context.Context, db *sql.DB, now time.Time, maxAge time.Duration) (int64, error) {
	if db == nil {
		return 0, errors.New("purge prediction cache: DB is nil")
	}

	res, err := db.ExecContext(ctx, `
	DELETE FROM prediction_cache
    WHERE fetched_at < $1
        OR departure_time < $2;
	`, now.Add(-maxAge), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge prediction cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge prediction cache: rows affected: %w", err)
	}
	return n, nil
}
