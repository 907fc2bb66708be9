package ports

import (
	"commute-forecast/internal/domain"
	"context"
	"time"
)

// Identifies one cached prediction.
type PredictionKey struct {
	Origin      domain.Coordinates
	Destination domain.Coordinates
	DepartAt    time.Time
}

// Port: a store for predictions that were already fetched.
// Get reports ok=false for missing or expired entries.
type PredictionCache interface {
	Get(ctx context.Context, key PredictionKey) (p Prediction, ok bool, err error)
	Put(ctx context.Context, key PredictionKey, p Prediction) error
}
