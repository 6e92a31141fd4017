package handlers

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// health serves the liveness probe. It reports process identity and uptime
// and never touches Firestore or Pub/Sub, so it stays green while backends
// are degraded.
func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   "feldhof-orders",
		Uptime:    time.Since(startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
