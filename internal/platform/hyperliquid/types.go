package hyperliquid

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
)

// wsRequest is the envelope for commands sent over the WebSocket.
type wsRequest struct {
	Method       string         `json:"method"`
	Subscription wsSubscription `json:"subscription"`
}

// wsSubscription names a feed channel, e.g. {"type":"allMids"}.
type wsSubscription struct {
	Type string `json:"type"`
}

// wsMessage is the envelope of every inbound WebSocket message.
type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// allMidsData carries the token -> mid price mapping of an allMids message.
// Prices arrive as decimal strings.
type allMidsData struct {
	Mids map[string]string `json:"mids"`
}

// ParseAllMids extracts the mid-price map from a raw WebSocket message. The
// second return is false for messages on other channels or with a shape that
// does not parse; those are ignored by the caller.
func ParseAllMids(raw []byte) (map[string]float64, bool) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, false
	}
	if msg.Channel != "allMids" {
		return nil, false
	}

	var data allMidsData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, false
	}

	mids := make(map[string]float64, len(data.Mids))
	for token, raw := range data.Mids {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price < 0 {
			continue
		}
		mids[token] = price
	}
	if len(mids) == 0 {
		return nil, false
	}
	return mids, true
}

// apiCandle is one candle record from the info endpoint's candleSnapshot
// response. Prices are decimal strings, times are Unix milliseconds.
type apiCandle struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	Trades    int64  `json:"n"`
}

// toDomain converts the API candles to the domain shape, dropping records
// with an unparseable close and sorting by open time ascending.
func toDomain(api []apiCandle) []domain.Candle {
	out := make([]domain.Candle, 0, len(api))
	for i := range api {
		c, err := strconv.ParseFloat(api[i].Close, 64)
		if err != nil {
			continue
		}
		out = append(out, domain.Candle{
			OpenTime: time.UnixMilli(api[i].OpenTime),
			Close:    c,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out
}
