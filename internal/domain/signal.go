package domain

import "time"

// SignalKind identifies the direction a signal recommends. The bot only
// trades the short side.
type SignalKind string

const (
	SignalKindShort SignalKind = "SHORT"
)

// Signal is an immutable record of a detected trade condition. Signals are
// retained in a bounded newest-first history for observability and,
// optionally, acted upon by the position book when auto-trade is on.
type Signal struct {
	ID        string     `json:"id"` // UUID
	Token     string     `json:"token"`
	Kind      SignalKind `json:"kind"`
	Reason    string     `json:"reason"`
	Price     float64    `json:"price"` // mid at trigger time
	RSI       float64    `json:"rsi"`   // indicator at trigger time
	CreatedAt time.Time  `json:"created_at"`
}
