package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/engine"
)

// EngineHandler serves the engine lifecycle and runtime-config endpoints.
type EngineHandler struct {
	ctrl *engine.Controller
}

// NewEngineHandler creates an EngineHandler backed by the controller.
func NewEngineHandler(ctrl *engine.Controller) *EngineHandler {
	return &EngineHandler{ctrl: ctrl}
}

// Activate starts the engine workers.
// POST /api/engine/activate
func (h *EngineHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Activate(r.Context()); err != nil {
		if errors.Is(err, domain.ErrEngineActive) {
			writeError(w, http.StatusConflict, "engine already active")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

// Deactivate stops the engine workers, keeping market state, positions, and
// signal history intact.
// POST /api/engine/deactivate
func (h *EngineHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Deactivate(r.Context()); err != nil {
		if errors.Is(err, domain.ErrEngineInactive) {
			writeError(w, http.StatusConflict, "engine not active")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": false})
}

// GetConfig responds with the current runtime settings.
// GET /api/engine/config
func (h *EngineHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Settings().Snapshot())
}

// configUpdate is the PUT body. Pointer fields distinguish "absent" from
// zero, so partial updates only touch the supplied knobs.
type configUpdate struct {
	WatchedToken   *string  `json:"watchedToken"`
	RSIThreshold   *float64 `json:"rsiThreshold"`
	RSIPeriod      *int     `json:"rsiPeriod"`
	CheckIntervalS *int     `json:"checkIntervalSeconds"`
	UseRSI         *bool    `json:"useRSI"`
	AutoTrade      *bool    `json:"autoTrade"`
	PositionSize   *float64 `json:"positionSize"`
	Leverage       *int     `json:"leverage"`
	StopLossPct    *float64 `json:"stopLossPct"`
	TakeProfitPct  *float64 `json:"takeProfitPct"`
}

// UpdateConfig applies a partial settings update. Changes take effect on each
// consumer's next cycle; existing positions keep their original levels.
// PUT /api/engine/config
func (h *EngineHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var upd configUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s := h.ctrl.Settings()
	if upd.WatchedToken != nil {
		s.SetWatched(*upd.WatchedToken)
	}
	if upd.RSIThreshold != nil {
		s.SetThreshold(*upd.RSIThreshold)
	}
	if upd.RSIPeriod != nil {
		s.SetPeriod(*upd.RSIPeriod)
	}
	if upd.CheckIntervalS != nil {
		s.SetPollInterval(time.Duration(*upd.CheckIntervalS) * time.Second)
	}
	if upd.UseRSI != nil {
		s.SetUseRSI(*upd.UseRSI)
	}
	if upd.AutoTrade != nil {
		s.SetAutoTrade(*upd.AutoTrade)
	}

	params := s.TradeParams()
	if upd.PositionSize != nil {
		params.Size = *upd.PositionSize
	}
	if upd.Leverage != nil {
		params.Leverage = *upd.Leverage
	}
	if upd.StopLossPct != nil {
		params.StopLossPct = *upd.StopLossPct
	}
	if upd.TakeProfitPct != nil {
		params.TakeProfitPct = *upd.TakeProfitPct
	}
	s.SetTradeParams(params)

	writeJSON(w, http.StatusOK, s.Snapshot())
}
