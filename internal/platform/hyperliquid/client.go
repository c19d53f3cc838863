// Package hyperliquid implements the exchange-facing clients: the info REST
// endpoint for historical candles and the WebSocket feed for real-time mid
// prices.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
)

// InfoClient is the REST client for the Hyperliquid info endpoint.
type InfoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewInfoClient creates an info client.
//
// baseURL is the API root, e.g. "https://api.hyperliquid.xyz".
func NewInfoClient(baseURL string) *InfoClient {
	return &InfoClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// candleSnapshotRequest is the POST body for a candleSnapshot query.
type candleSnapshotRequest struct {
	Type string            `json:"type"`
	Req  candleSnapshotReq `json:"req"`
}

type candleSnapshotReq struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"` // Unix ms
	EndTime   int64  `json:"endTime"`   // Unix ms
}

// CandleSnapshot fetches the candle window for coin at the given interval
// (e.g. "15m") between start and end, returned in open-time ascending order.
func (c *InfoClient) CandleSnapshot(ctx context.Context, coin, interval string, start, end time.Time) ([]domain.Candle, error) {
	reqBody := candleSnapshotRequest{
		Type: "candleSnapshot",
		Req: candleSnapshotReq{
			Coin:      coin,
			Interval:  interval,
			StartTime: start.UnixMilli(),
			EndTime:   end.UnixMilli(),
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: marshal candle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: create candle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: candle snapshot %s: %w", coin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("hyperliquid: candle snapshot %s: unexpected status %d: %s",
			coin, resp.StatusCode, string(respBody))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: read candle response: %w", err)
	}

	var api []apiCandle
	if err := json.Unmarshal(raw, &api); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode candle response for %s: %w", coin, err)
	}

	return toDomain(api), nil
}
