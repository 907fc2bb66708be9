package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "req_id"
	RouteKey     ctxKey = "route"
)

// WithRoute tags ctx so timings logged below it carry the route name.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)
	route, _ := ctx.Value(RouteKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		evt := log.Debug()
		if errp != nil && *errp != nil {
			evt = log.Warn().Err(*errp)
		}
		evt.
			Str("req_id", reqID).
			Str("route", route).
			Str("op", name).
			Int64("dur_ms", dur.Milliseconds()).
			Msg("operation finished")
	}
}
