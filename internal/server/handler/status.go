package handler

import (
	"net/http"

	"github.com/lfvieira/hypershort/internal/engine"
)

// StatusHandler serves the engine status and snapshot endpoints.
type StatusHandler struct {
	ctrl *engine.Controller
}

// NewStatusHandler creates a StatusHandler backed by the controller.
func NewStatusHandler(ctrl *engine.Controller) *StatusHandler {
	return &StatusHandler{ctrl: ctrl}
}

// Status responds with a lightweight liveness view of the engine.
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"active":         snap.Active,
		"feed_connected": snap.FeedConnected,
		"open_positions": len(snap.OpenPositions),
		"recent_signals": len(snap.RecentSignals),
		"generated_at":   snap.GeneratedAt,
	})
}

// Snapshot responds with the full engine state: instruments, positions, and
// recent signals.
// GET /api/snapshot
func (h *StatusHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}
