package handlers

import (
	"net/http"
)

// Health provides a minimal liveness check endpoint. It deliberately does
// not touch the database or the distance provider; a degraded provider
// surfaces per-request as 502 instead.
func Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := map[string]string{"status": "ok", "service": "trip-route-service"}
	writeJSON(w, r, http.StatusOK, res)
}
