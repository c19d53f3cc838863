package handler

import (
	"errors"
	"net/http"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/position"
)

// PositionHandler serves the simulated position endpoints.
type PositionHandler struct {
	book *position.Book
}

// NewPositionHandler creates a PositionHandler backed by the book.
func NewPositionHandler(book *position.Book) *PositionHandler {
	return &PositionHandler{book: book}
}

// List responds with open and closed positions.
// GET /api/positions
func (h *PositionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.Position{
		"open":   h.book.OpenPositions(),
		"closed": h.book.ClosedPositions(),
	})
}

type openRequest struct {
	Token string `json:"token"`
}

// Open opens a simulated short for the requested token at its current mid.
// POST /api/positions
func (h *PositionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	pos, err := h.book.Open(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownToken):
			writeError(w, http.StatusNotFound, "unknown token "+req.Token)
		case errors.Is(err, domain.ErrPriceUnavailable):
			writeError(w, http.StatusConflict, "no price received for "+req.Token+" yet")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, pos)
}

// Close manually closes a position. Closing an unknown or already-closed id
// is a no-op and still responds 204.
// DELETE /api/positions/{id}
func (h *PositionHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.book.Close(r.Context(), pathParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
