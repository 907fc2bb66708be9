package handlers

import (
	"net/http"
)

// HealthHandler reports liveness and which charts are ready to serve.
type HealthHandler struct {
	Store *ChartStore
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := struct {
		Status string   `json:"status"`
		Charts []string `json:"charts"`
	}{
		Status: "ok",
		Charts: h.Store.Names(),
	}
	writeJSON(w, r, http.StatusOK, res)
}
