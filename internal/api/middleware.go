package api

import (
	"commute-forecast/internal/platform/obs"
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

// statusWriter remembers what actually went out on the wire.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// requestMiddleware tags each request with an ID (reusing the caller's
// X-Request-ID when present) and logs status, size and duration.
func requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		r = r.WithContext(context.WithValue(r.Context(), obs.RequestIDKey, reqID))

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		evt := log.Info()
		if sw.status >= http.StatusInternalServerError {
			evt = log.Error()
		}
		evt.
			Str("req_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.RequestURI()).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Int64("dur_ms", time.Since(start).Milliseconds()).
			Msg("request")
	})
}
