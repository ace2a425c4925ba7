package handler

import (
	"net/http"

	"github.com/ktrade/whaleflow/internal/domain"
)

// PositionHandler exposes the current open position.
type PositionHandler struct {
	symbol string
	store  domain.PositionStore
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(symbol string, store domain.PositionStore) *PositionHandler {
	return &PositionHandler{symbol: symbol, store: store}
}

// GetPosition returns the open position, or 404 when the slot is empty.
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, ok := h.store.Get(h.symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "no open position")
		return
	}
	writeJSON(w, http.StatusOK, pos)
}
