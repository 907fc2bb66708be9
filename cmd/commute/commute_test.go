package main

import (
	"bytes"
	"commute-forecast/internal/adapters/traffic"
	"commute-forecast/internal/config"
	"commute-forecast/internal/domain"
	"commute-forecast/internal/services"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testRoute = domain.Route{
	Name:        "morning",
	Title:       "Commute time - Home to Work",
	Origin:      domain.Coordinates{Lat: 45, Lon: 45},
	Destination: domain.Coordinates{Lat: 45.2, Lon: 44.8},
	StartHour:   6,
	EndHour:     7,
}

func newTestPipeline(p *traffic.MockPredictor) *services.Pipeline {
	return &services.Pipeline{
		Predictor: p,
		Fetch:     services.FetchOptions{Concurrency: 1, Policy: config.PolicyAbort},
		DayOffset: 7,
		Interval:  5 * time.Minute,
		Location:  time.UTC,
		Now:       func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) },
	}
}

func TestInitCacheDoesNotNeedAPIKey(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GOOGLE_DISTANCE_MATRIX_KEY", "")
	t.Setenv("DATABASE_URL", "")

	err := newApp().Run([]string{"commute", "init-cache"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("err = %v, want DATABASE_URL error", err)
	}
}

func TestRunNeedsAPIKey(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("GOOGLE_DISTANCE_MATRIX_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("METRICS_ADDR", "")

	err := newApp().Run([]string{"commute", "run", "--output-dir", dir})
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_DISTANCE_MATRIX_KEY") {
		t.Fatalf("err = %v, want missing key error", err)
	}
}

func TestRunRouteWritesChart(t *testing.T) {
	dir := t.TempDir()

	path, err := runRoute(context.Background(), newTestPipeline(traffic.NewFixedPredictor(1500)), testRoute, dir, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "commute-morning.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("chart is not a PNG")
	}
}

func TestRunRouteAbortWritesNothing(t *testing.T) {
	dir := t.TempDir()
	failing := traffic.NewMockPredictor(func(_, _ domain.Coordinates, at time.Time) (int, error) {
		if at.Weekday() == time.Tuesday && at.Hour() == 6 && at.Minute() == 30 {
			return 0, errors.New("REQUEST_DENIED")
		}
		return 1500, nil
	})

	path, err := runRoute(context.Background(), newTestPipeline(failing), testRoute, dir, "png")
	if err == nil {
		t.Fatalf("expected error")
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("output dir has %d entries, want 0", len(entries))
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
