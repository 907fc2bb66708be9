package traffic

import (
	"commute-forecast/internal/domain"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

const okBody = `{
  "status": "OK",
  "origin_addresses": ["A"],
  "destination_addresses": ["B"],
  "rows": [{
    "elements": [{
      "status": "OK",
      "distance": {"value": 12345, "text": "12.3 km"},
      "duration": {"value": 1500, "text": "25 mins"},
      "duration_in_traffic": {"value": 1800, "text": "30 mins"}
    }]
  }]
}`

var (
	home = domain.Coordinates{Lat: 45.5, Lon: -73.25}
	work = domain.Coordinates{Lat: 45.75, Lon: -73.5}
)

func newTestPredictor(t *testing.T, url string, retries int) *DistanceMatrixPredictor {
	t.Helper()

	p, err := NewDistanceMatrixPredictor("test-key", Options{
		BaseURL:              url,
		MaxRetries:           retries,
		RetryInitialInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestPredictDurationParsesTrafficDuration(t *testing.T) {
	departAt := time.Date(2026, 10, 26, 6, 5, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("origins"); got != "45.5,-73.25" {
			t.Errorf("origins = %q", got)
		}
		if got := q.Get("destinations"); got != "45.75,-73.5" {
			t.Errorf("destinations = %q", got)
		}
		if got := q.Get("departure_time"); got != strconv.FormatInt(departAt.Unix(), 10) {
			t.Errorf("departure_time = %q", got)
		}
		if got := q.Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	p := newTestPredictor(t, srv.URL, 0)

	pred, err := p.PredictDuration(context.Background(), home, work, departAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.DurationInTrafficSeconds != 1800 {
		t.Errorf("duration_in_traffic = %d, want 1800", pred.DurationInTrafficSeconds)
	}
	if pred.DurationSeconds != 1500 {
		t.Errorf("duration = %d, want 1500", pred.DurationSeconds)
	}
	if pred.DistanceMeters != 12345 {
		t.Errorf("distance = %d, want 12345", pred.DistanceMeters)
	}
}

func TestPredictDurationRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Write([]byte(`{"status": "OVER_QUERY_LIMIT", "rows": []}`))
		default:
			w.Write([]byte(okBody))
		}
	}))
	defer srv.Close()

	p := newTestPredictor(t, srv.URL, 3)

	pred, err := p.PredictDuration(context.Background(), home, work, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.DurationInTrafficSeconds != 1800 {
		t.Errorf("duration_in_traffic = %d, want 1800", pred.DurationInTrafficSeconds)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestPredictDurationGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newTestPredictor(t, srv.URL, 2)

	_, err := p.PredictDuration(context.Background(), home, work, time.Now().Add(time.Hour))

	var he *httpStatusError
	if !errors.As(err, &he) || he.Code != http.StatusBadGateway {
		t.Fatalf("err = %v, want http 502", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", n)
	}
}

func TestPredictDurationDoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(error) bool
	}{
		{
			name:  "request denied",
			body:  `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid.", "rows": []}`,
			check: IsRequestDenied,
		},
		{
			name: "missing traffic duration",
			body: `{"status": "OK", "rows": [{"elements": [{"status": "OK", "duration": {"value": 1500}}]}]}`,
			check: func(err error) bool {
				return errors.Is(err, ErrNoTrafficDuration)
			},
		},
		{
			name: "no route",
			body: `{"status": "OK", "rows": [{"elements": [{"status": "ZERO_RESULTS"}]}]}`,
			check: func(err error) bool {
				var ee *elementStatusError
				return errors.As(err, &ee) && ee.Status == "ZERO_RESULTS"
			},
		},
		{
			name: "empty matrix",
			body: `{"status": "OK", "rows": []}`,
			check: func(err error) bool {
				return errors.Is(err, ErrMalformedResponse)
			},
		},
		{
			name: "not json",
			body: `<html>oops</html>`,
			check: func(err error) bool {
				return err != nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := newTestPredictor(t, srv.URL, 3)

			_, err := p.PredictDuration(context.Background(), home, work, time.Now().Add(time.Hour))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("calls = %d, want 1", n)
			}
		})
	}
}

func TestPredictDurationRespectsCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	p := newTestPredictor(t, srv.URL, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.PredictDuration(ctx, home, work, time.Now().Add(time.Hour)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewDistanceMatrixPredictorRequiresKey(t *testing.T) {
	if _, err := NewDistanceMatrixPredictor("", Options{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
