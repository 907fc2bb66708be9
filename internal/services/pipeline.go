package services

import (
	"commute-forecast/internal/config"
	"commute-forecast/internal/domain"
	"commute-forecast/internal/platform/obs"
	"commute-forecast/internal/ports"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

type TableRecorder interface {
	SetRecords(route string, ok, failed int)
}

// Pipeline turns a route into a filled commute table:
// time grid -> table -> duration lookups.
type Pipeline struct {
	Predictor ports.DurationPredictor
	Fetch     FetchOptions
	DayOffset int
	Interval  time.Duration
	Location  *time.Location
	Now       func() time.Time
	Metrics   TableRecorder
}

func NewPipeline(cfg *config.Config, predictor ports.DurationPredictor) *Pipeline {
	return &Pipeline{
		Predictor: predictor,
		Fetch: FetchOptions{
			Concurrency: cfg.FetchConcurrency,
			Policy:      cfg.FailurePolicy,
		},
		DayOffset: cfg.DayOffset,
		Interval:  cfg.SampleInterval,
		Location:  cfg.Location,
		Now:       time.Now,
	}
}

// Run builds and fills the commute table for one route. Under the abort
// policy any failed lookup discards the table and returns the error.
func (p *Pipeline) Run(ctx context.Context, route domain.Route) (_ *domain.CommuteTable, err error) {
	ctx = obs.WithRoute(ctx, route.Name)
	defer obs.Time(ctx, "pipeline.Run")(&err)

	if p.Predictor == nil {
		return nil, errors.New("run pipeline: predictor must be non-nil")
	}

	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	if p.Location != nil {
		now = now.In(p.Location)
	}

	grid := GenerateTimeGrid(now, GridSpec{
		StartHour: route.StartHour,
		EndHour:   route.EndHour,
		DayOffset: p.DayOffset,
		Days:      DefaultDays,
		Interval:  p.Interval,
	})

	log.Info().
		Str("route", route.Name).
		Int("departures", len(grid)).
		Msg("generated departure grid")

	table := BuildCommuteTable(route, grid)

	if err := FetchDurations(ctx, table, p.Predictor, p.Fetch); err != nil {
		return nil, fmt.Errorf("run pipeline %s: %w", route.Name, err)
	}

	ok, failed := len(table.Successful()), table.Failed()
	if p.Metrics != nil {
		p.Metrics.SetRecords(route.Name, ok, failed)
	}
	log.Info().
		Str("route", route.Name).
		Int("ok", ok).
		Int("failed", failed).
		Msg("commute table ready")

	return table, nil
}
