package domain

import "time"

// Candle is a single 15-minute price bucket. Only the close is used by the
// indicator engine; the rest of the exchange's OHLC payload is dropped at
// the platform boundary.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Close    float64   `json:"close"`
}

// InstrumentState is the live per-token market state maintained by the
// market store. Price fields are written by the feed supervisor, RSI and
// Candles by the indicator engine.
type InstrumentState struct {
	Token     string    `json:"token"`
	Price     float64   `json:"price"`      // current mid, 0 means unknown
	PrevPrice float64   `json:"prev_price"` // mid before the last update
	ChangePct float64   `json:"change_pct"` // step change, percent
	RSI       float64   `json:"rsi"`        // [0,100], 50 until first computation
	Candles   []Candle  `json:"candles,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NeutralRSI is the indicator value reported before enough candle history is
// available to compute a real reading.
const NeutralRSI = 50.0
