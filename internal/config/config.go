package config

import (
	"commute-forecast/internal/domain"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultDistanceMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"
	defaultCoord             = "45.000000,45.000000"
)

type FailurePolicy string

const (
	// Stop the run at the first failed lookup.
	PolicyAbort FailurePolicy = "abort"
	// Mark the row as failed and keep going.
	PolicySkip FailurePolicy = "skip"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAbort, PolicySkip:
		return p, nil
	case "":
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("invalid failure policy %q (want abort or skip)", s)
	}
}

type Window struct {
	StartHour int
	EndHour   int
}

type Config struct {
	APIKey            string
	DistanceMatrixURL string

	Home domain.Coordinates
	Work domain.Coordinates

	Morning Window
	Evening Window

	DayOffset      int
	SampleInterval time.Duration

	FetchConcurrency int
	FailurePolicy    FailurePolicy
	RequestTimeout   time.Duration
	MaxRetries       int

	Location *time.Location

	DatabaseURL        string
	RedisAddr          string
	PredictionCacheTTL time.Duration

	MetricsAddr string
	OutputDir   string
	ChartFormat string

	LogFormat string
	Debug     bool
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	return FromEnv(os.Getenv)
}

// RequireAPIKey fails when no Distance Matrix credential is configured.
// Only commands that call the remote service need one.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return errors.New("GOOGLE_DISTANCE_MATRIX_KEY is required")
	}
	return nil
}

// FromEnv builds a Config from a lookup function so tests can inject values.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.APIKey = strings.TrimSpace(getenv("GOOGLE_DISTANCE_MATRIX_KEY"))
	cfg.DistanceMatrixURL = getenvDefault(getenv, "DISTANCE_MATRIX_URL", DefaultDistanceMatrixURL)

	if cfg.Home, err = domain.ParseCoordinates(getenvDefault(getenv, "HOME_COORD", defaultCoord)); err != nil {
		return nil, fmt.Errorf("invalid HOME_COORD: %w", err)
	}
	if cfg.Work, err = domain.ParseCoordinates(getenvDefault(getenv, "WORK_COORD", defaultCoord)); err != nil {
		return nil, fmt.Errorf("invalid WORK_COORD: %w", err)
	}

	if cfg.Morning.StartHour, err = hourEnv(getenv, "MORNING_START_HOUR", 6); err != nil {
		return nil, err
	}
	if cfg.Morning.EndHour, err = hourEnv(getenv, "MORNING_END_HOUR", 10); err != nil {
		return nil, err
	}
	if cfg.Evening.StartHour, err = hourEnv(getenv, "EVENING_START_HOUR", 16); err != nil {
		return nil, err
	}
	if cfg.Evening.EndHour, err = hourEnv(getenv, "EVENING_END_HOUR", 20); err != nil {
		return nil, err
	}

	if cfg.DayOffset, err = intEnv(getenv, "DAY_OFFSET", 7, 0); err != nil {
		return nil, err
	}

	interval, err := intEnv(getenv, "SAMPLE_INTERVAL_MINUTES", 5, 1)
	if err != nil {
		return nil, err
	}
	cfg.SampleInterval = time.Duration(interval) * time.Minute

	if cfg.FetchConcurrency, err = intEnv(getenv, "FETCH_CONCURRENCY", 1, 1); err != nil {
		return nil, err
	}

	if cfg.FailurePolicy, err = ParseFailurePolicy(getenv("FAILURE_POLICY")); err != nil {
		return nil, fmt.Errorf("invalid FAILURE_POLICY: %w", err)
	}

	timeoutSec, err := intEnv(getenv, "REQUEST_TIMEOUT_SEC", 10, 1)
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = time.Duration(timeoutSec) * time.Second

	if cfg.MaxRetries, err = intEnv(getenv, "MAX_RETRIES", 3, 0); err != nil {
		return nil, err
	}

	// Time zone
	tzName := getenvDefault(getenv, "TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	cfg.DatabaseURL = getenv("DATABASE_URL")
	cfg.RedisAddr = getenv("REDIS_ADDR")

	ttlHours, err := intEnv(getenv, "PREDICTION_CACHE_TTL_HOURS", 24, 1)
	if err != nil {
		return nil, err
	}
	cfg.PredictionCacheTTL = time.Duration(ttlHours) * time.Hour

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = getenv("METRICS_ADDR")

	cfg.OutputDir = getenvDefault(getenv, "OUTPUT_DIR", ".")
	cfg.ChartFormat = strings.ToLower(getenvDefault(getenv, "CHART_FORMAT", "png"))
	if cfg.ChartFormat != "png" && cfg.ChartFormat != "svg" {
		return nil, fmt.Errorf("invalid CHART_FORMAT: %q", cfg.ChartFormat)
	}

	cfg.LogFormat = getenv("COMMUTE_LOG_FORMAT")
	cfg.Debug = getenv("COMMUTE_DEBUG") == "YES"

	return cfg, nil
}

// Routes returns the two fixed commute directions.
func (c *Config) Routes() []domain.Route {
	return []domain.Route{
		{
			Name:        "morning",
			Title:       "Commute time - Home to Work",
			Origin:      c.Home,
			Destination: c.Work,
			StartHour:   c.Morning.StartHour,
			EndHour:     c.Morning.EndHour,
		},
		{
			Name:        "evening",
			Title:       "Commute time - Work to Home",
			Origin:      c.Work,
			Destination: c.Home,
			StartHour:   c.Evening.StartHour,
			EndHour:     c.Evening.EndHour,
		},
	}
}

func getenvDefault(getenv func(string) string, k, def string) string {
	if v := strings.TrimSpace(getenv(k)); v != "" {
		return v
	}
	return def
}

func intEnv(getenv func(string) string, k string, def, min int) (int, error) {
	v := strings.TrimSpace(getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func hourEnv(getenv func(string) string, k string, def int) (int, error) {
	h, err := intEnv(getenv, k, def, 0)
	if err != nil {
		return 0, err
	}
	if h > 23 {
		return 0, fmt.Errorf("invalid %s: %d is not an hour of the day", k, h)
	}
	return h, nil
}
