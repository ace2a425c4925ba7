package handler

import (
	"net/http"
	"time"
)

// HealthHandler reports process liveness and journal health.
type HealthHandler struct {
	startedAt      time.Time
	journalHealthy func() bool
}

// NewHealthHandler creates a HealthHandler. journalHealthy reports whether
// the last journal append succeeded.
func NewHealthHandler(journalHealthy func() bool) *HealthHandler {
	return &HealthHandler{
		startedAt:      time.Now(),
		journalHealthy: journalHealthy,
	}
}

// HealthCheck responds 200 while the journal is healthy and 503 once appends
// start failing, so orchestrators can restart a session that is no longer
// recording trades.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthy := h.journalHealthy == nil || h.journalHealthy()
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":          map[bool]string{true: "ok", false: "degraded"}[healthy],
		"journal_healthy": healthy,
		"uptime_seconds":  int(time.Since(h.startedAt).Seconds()),
	})
}
