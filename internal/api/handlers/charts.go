package handlers

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// ChartStore holds the latest rendered chart per route name.
type ChartStore struct {
	mu     sync.RWMutex
	charts map[string][]byte
}

func NewChartStore() *ChartStore {
	return &ChartStore{charts: make(map[string][]byte)}
}

func (s *ChartStore) Put(route string, png []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charts[route] = png
}

func (s *ChartStore) Get(route string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.charts[route]
	return b, ok
}

// Names lists the stored routes in sorted order.
func (s *ChartStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.charts))
	for name := range s.charts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ChartHandler serves GET /charts/{route} as PNG.
type ChartHandler struct {
	Store *ChartStore
}

func (h *ChartHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	route := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/charts/"), ".png")
	if route == "" || strings.Contains(route, "/") {
		writeError(w, r, http.StatusNotFound, "unknown chart")
		return
	}

	png, ok := h.Store.Get(route)
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
