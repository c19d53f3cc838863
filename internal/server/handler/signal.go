package handler

import (
	"net/http"

	"github.com/lfvieira/hypershort/internal/detector"
	"github.com/lfvieira/hypershort/internal/domain"
)

// SignalHandler serves the detected-signal history.
type SignalHandler struct {
	det *detector.Detector
}

// NewSignalHandler creates a SignalHandler backed by the detector.
func NewSignalHandler(det *detector.Detector) *SignalHandler {
	return &SignalHandler{det: det}
}

// List responds with recent signals, newest first.
// GET /api/signals
func (h *SignalHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.Signal{
		"signals": h.det.Recent(),
	})
}
