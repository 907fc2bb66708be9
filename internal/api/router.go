package api

import (
	"commute-forecast/internal/api/handlers"
	"net/http"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// metrics may be nil, in which case /metrics is not registered.
func NewRouter(charts *handlers.ChartStore, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Store: charts}
	chartHandler := &handlers.ChartHandler{Store: charts}

	mux.HandleFunc("/health", healthHandler.Get)
	mux.HandleFunc("/charts/", chartHandler.Get)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	return requestMiddleware(mux)
}
