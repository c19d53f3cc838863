package handler

import (
	"net/http"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
)

// MarketHandler serves instrument state endpoints.
type MarketHandler struct {
	store *market.Store
}

// NewMarketHandler creates a MarketHandler backed by the store.
func NewMarketHandler(store *market.Store) *MarketHandler {
	return &MarketHandler{store: store}
}

// List responds with the state of every tracked instrument.
// GET /api/market
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.InstrumentState{
		"instruments": h.store.Snapshot(),
	})
}

// Get responds with a single instrument's state.
// GET /api/market/{token}
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := pathParam(r, "token")
	st, ok := h.store.Get(token)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown token "+token)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
