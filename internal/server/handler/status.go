package handler

import (
	"net/http"

	"github.com/ktrade/whaleflow/internal/domain"
	"github.com/ktrade/whaleflow/internal/position"
)

// StatusHandler exposes the live session state: the latest snapshot seen by
// the loop and the running session statistics.
type StatusHandler struct {
	symbol  string
	mode    string
	source  domain.SnapshotSource
	manager *position.Manager
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(symbol, mode string, source domain.SnapshotSource, manager *position.Manager) *StatusHandler {
	return &StatusHandler{symbol: symbol, mode: mode, source: source, manager: manager}
}

// GetStatus returns the session overview.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"symbol": h.symbol,
		"mode":   h.mode,
		"stats":  h.manager.Stats(),
	}
	if snap, ok := h.source.Latest(); ok {
		resp["snapshot"] = snap
	}
	writeJSON(w, http.StatusOK, resp)
}
