package services

import (
	"commute-forecast/internal/config"
	"commute-forecast/internal/domain"
	"commute-forecast/internal/platform/obs"
	"commute-forecast/internal/ports"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// Returned under the skip policy when not a single lookup succeeded.
var ErrAllLookupsFailed = errors.New("all duration lookups failed")

type LookupRecorder interface {
	ObserveLookup(ok bool, d time.Duration)
}

type FetchOptions struct {
	// Maximum lookups in flight. 1 keeps the run strictly sequential.
	Concurrency int
	Policy      config.FailurePolicy
	Metrics     LookupRecorder
}

// FetchDurations looks up the traffic-aware duration of every record in the
// table and writes it back into that record.
//
// Each lookup owns exactly one record index, so the table keeps grid order
// whatever the concurrency. Under PolicyAbort the first failure cancels the
// outstanding lookups and is returned. Under PolicySkip failures are kept on
// their records and the run continues.
func FetchDurations(
	ctx context.Context,
	table *domain.CommuteTable,
	predictor ports.DurationPredictor,
	opts FetchOptions,
) (err error) {
	defer obs.Time(ctx, "services.FetchDurations")(&err)

	if table == nil {
		return errors.New("fetch durations: table must be non-nil")
	}
	if predictor == nil {
		return errors.New("fetch durations: predictor must be non-nil")
	}

	total := len(table.Records)
	if total == 0 {
		return nil
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	abort := opts.Policy != config.PolicySkip
	route := table.Route
	prog := newProgress(route.Name, total)

	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers)
	if abort {
		p = p.WithCancelOnError().WithFirstError()
	}

	for i := range table.Records {
		rec := &table.Records[i]

		p.Go(func(ctx context.Context) error {
			// Left pending: the run is already being torn down.
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			pred, err := predictor.PredictDuration(ctx, route.Origin, route.Destination, rec.DepartAt)
			if opts.Metrics != nil {
				opts.Metrics.ObserveLookup(err == nil, time.Since(start))
			}
			prog.tick()

			if err != nil {
				err = fmt.Errorf("fetch durations: %s %s: %w", rec.WeekDay, rec.TimeLabel, err)
				rec.Fail(err)
				if abort || ctx.Err() != nil {
					return err
				}
				log.Warn().Err(err).Str("route", route.Name).Msg("skipping failed lookup")
				return nil
			}

			rec.SetDuration(pred.DurationInTrafficSeconds)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}

	if table.Failed() == total {
		return fmt.Errorf("fetch durations: route %s: %w", route.Name, ErrAllLookupsFailed)
	}

	return nil
}

// progress logs roughly every tenth of the way through a route.
type progress struct {
	route string
	total int64
	every int64
	done  atomic.Int64
}

func newProgress(route string, total int) *progress {
	every := int64(total / 10)
	if every < 1 {
		every = 1
	}
	return &progress{route: route, total: int64(total), every: every}
}

func (p *progress) tick() {
	n := p.done.Add(1)
	if n%p.every != 0 && n != p.total {
		return
	}
	log.Info().
		Str("route", p.route).
		Int64("done", n).
		Int64("total", p.total).
		Msgf("fetched %d/%d", n, p.total)
}
