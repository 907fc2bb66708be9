package cache

import (
	"commute-forecast/internal/platform/obs"
	"commute-forecast/internal/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLPredictionCache is a Postgres-backed cache for departure predictions.
// Entries older than MaxAge are treated as missing.
type SQLPredictionCache struct {
	DB     *sql.DB
	MaxAge time.Duration
	Now    func() time.Time
}

func NewSQLPredictionCache(db *sql.DB, maxAge time.Duration) *SQLPredictionCache {
	return &SQLPredictionCache{DB: db, MaxAge: maxAge, Now: time.Now}
}

// Fetch a cached prediction for one origin, destination and departure.
func (s *SQLPredictionCache) Get(
	ctx context.Context,
	key ports.PredictionKey,
) (_ ports.Prediction, _ bool, err error) {
	defer obs.Time(ctx, "prediction.cache.Get")(&err)

	if s.DB == nil {
		return ports.Prediction{}, false, errors.New("prediction cache: db is nil")
	}

	q := `
	SELECT duration_in_traffic_seconds, duration_seconds, distance_meters
    FROM prediction_cache
    WHERE origin = $1
        AND destination = $2
        AND departure_time = $3
        AND fetched_at >= $4;
	`

	var p ports.Prediction
	row := s.DB.QueryRowContext(ctx, q,
		key.Origin.String(), key.Destination.String(), key.DepartAt.Unix(), s.now().Add(-s.MaxAge))
	if err := row.Scan(&p.DurationInTrafficSeconds, &p.DurationSeconds, &p.DistanceMeters); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.Prediction{}, false, nil
		}
		return ports.Prediction{}, false, fmt.Errorf("get prediction cache: scan row: %w", err)
	}

	return p, true, nil
}

// Store a prediction, replacing any previous entry for the same key.
func (s *SQLPredictionCache) Put(
	ctx context.Context,
	key ports.PredictionKey,
	p ports.Prediction,
) error {
	if s.DB == nil {
		return errors.New("prediction cache: db is nil")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO prediction_cache (
        origin, destination, departure_time,
        duration_in_traffic_seconds, duration_seconds, distance_meters, fetched_at
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (origin, destination, departure_time) DO UPDATE
	SET duration_in_traffic_seconds = EXCLUDED.duration_in_traffic_seconds,
		duration_seconds = EXCLUDED.duration_seconds,
		distance_meters = EXCLUDED.distance_meters,
		fetched_at = EXCLUDED.fetched_at;
	`,
		key.Origin.String(), key.Destination.String(), key.DepartAt.Unix(),
		p.DurationInTrafficSeconds, p.DurationSeconds, p.DistanceMeters, s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert prediction cache: %w", err)
	}

	return nil
}

func (s *SQLPredictionCache) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
