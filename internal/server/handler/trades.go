package handler

import (
	"net/http"

	"github.com/ktrade/whaleflow/internal/domain"
)

// TradesHandler lists closed trades from the journal, or from the archive
// when one is configured.
type TradesHandler struct {
	journal domain.TradeJournal
	archive domain.TradeArchive // optional
}

// NewTradesHandler creates a TradesHandler. archive may be nil, in which case
// all queries read the local journal.
func NewTradesHandler(journal domain.TradeJournal, archive domain.TradeArchive) *TradesHandler {
	return &TradesHandler{journal: journal, archive: archive}
}

// ListTrades returns the most recent closed trades, newest first.
func (h *TradesHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	if h.archive != nil {
		recs, err := h.archive.ListRecent(r.Context(), limit)
		if err == nil {
			writeJSON(w, http.StatusOK, recs)
			return
		}
		// Archive trouble falls through to the local journal.
	}

	recs, err := h.journal.LoadAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}
	// LoadAll returns oldest first; serve the newest page.
	if len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	writeJSON(w, http.StatusOK, recs)
}
