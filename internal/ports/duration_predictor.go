package ports

import (
	"commute-forecast/internal/domain"
	"context"
	"time"
)

// Traffic-aware travel prediction for a single departure.
type Prediction struct {
	DurationInTrafficSeconds int
	DurationSeconds          int
	DistanceMeters           int
}

// Contract for predicting how long a trip takes when leaving at departAt.
type DurationPredictor interface {
	PredictDuration(ctx context.Context, origin, destination domain.Coordinates, departAt time.Time) (Prediction, error)
}
