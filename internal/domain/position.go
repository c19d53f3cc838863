package domain

import "time"

// PositionStatus is the position lifecycle state. Transitions are monotonic:
// open -> closing -> closed, never backwards. A position makes at most one
// open -> closing transition.
type PositionStatus string

const (
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusClosing PositionStatus = "closing"
	PositionStatusClosed  PositionStatus = "closed"
)

// Position is a simulated leveraged short. For a short the protective levels
// sit on either side of entry: TakeProfit < EntryPrice < StopLoss.
type Position struct {
	ID           string         `json:"id"` // UUID
	Token        string         `json:"token"`
	Kind         SignalKind     `json:"kind"`
	EntryPrice   float64        `json:"entry_price"`
	CurrentPrice float64        `json:"current_price"`
	Size         float64        `json:"size"` // notional, quote units
	Leverage     int            `json:"leverage"`
	StopLoss     float64        `json:"stop_loss"`
	TakeProfit   float64        `json:"take_profit"`
	PnL          float64        `json:"pnl"`
	PnLPct       float64        `json:"pnl_pct"`
	Status       PositionStatus `json:"status"`
	CloseReason  string         `json:"close_reason,omitempty"` // "stop-loss", "take-profit", "manual"
	OpenedAt     time.Time      `json:"opened_at"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty"`
	ExitPrice    *float64       `json:"exit_price,omitempty"`
}

// EngineSnapshot is the read-only view handed to presentation consumers. All
// slices are deep copies; mutating a snapshot never touches engine state.
type EngineSnapshot struct {
	Active          bool              `json:"active"`
	FeedConnected   bool              `json:"feed_connected"`
	Instruments     []InstrumentState `json:"instruments"`
	OpenPositions   []Position        `json:"open_positions"`
	ClosedPositions []Position        `json:"closed_positions"`
	RecentSignals   []Signal          `json:"recent_signals"`
	GeneratedAt     time.Time         `json:"generated_at"`
}
