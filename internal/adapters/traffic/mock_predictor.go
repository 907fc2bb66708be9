package traffic

import (
	"commute-forecast/internal/domain"
	"commute-forecast/internal/ports"
	"context"
	"fmt"
	"sync"
	"time"
)

// MockPredictor answers every lookup from a function and records the calls.
type MockPredictor struct {
	mu    sync.Mutex
	calls []time.Time
	fn    func(origin, destination domain.Coordinates, departAt time.Time) (int, error)
}

func NewMockPredictor(fn func(origin, destination domain.Coordinates, departAt time.Time) (int, error)) *MockPredictor {
	return &MockPredictor{fn: fn}
}

// NewFixedPredictor returns the same duration for every departure.
func NewFixedPredictor(seconds int) *MockPredictor {
	return NewMockPredictor(func(domain.Coordinates, domain.Coordinates, time.Time) (int, error) {
		return seconds, nil
	})
}

// NewFailingPredictor fails for the departures in failAt and returns seconds otherwise.
func NewFailingPredictor(seconds int, failAt ...time.Time) *MockPredictor {
	fail := make(map[int64]struct{}, len(failAt))
	for _, t := range failAt {
		fail[t.Unix()] = struct{}{}
	}
	return NewMockPredictor(func(_, _ domain.Coordinates, departAt time.Time) (int, error) {
		if _, ok := fail[departAt.Unix()]; ok {
			return 0, fmt.Errorf("mock lookup failed at %s", departAt.Format(time.RFC3339))
		}
		return seconds, nil
	})
}

func (p *MockPredictor) PredictDuration(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	departAt time.Time,
) (ports.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return ports.Prediction{}, err
	}

	p.mu.Lock()
	p.calls = append(p.calls, departAt)
	p.mu.Unlock()

	s, err := p.fn(origin, destination, departAt)
	if err != nil {
		return ports.Prediction{}, err
	}

	return ports.Prediction{DurationInTrafficSeconds: s, DurationSeconds: s}, nil
}

// Calls returns the departures looked up so far, in call order.
func (p *MockPredictor) Calls() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]time.Time, len(p.calls))
	copy(out, p.calls)
	return out
}
