package indicator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
)

type fakeProvider struct {
	mu      sync.Mutex
	candles map[string][]domain.Candle
	err     error
	calls   int
}

func (f *fakeProvider) CandleSnapshot(ctx context.Context, coin, interval string, start, end time.Time) ([]domain.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candles[coin], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func risingCandles(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	base := time.Unix(1_700_000_000, 0)
	for i := range out {
		out[i] = domain.Candle{
			OpenTime: base.Add(time.Duration(i) * 15 * time.Minute),
			Close:    100 + float64(i),
		}
	}
	return out
}

func TestEngine_RefreshAll(t *testing.T) {
	store := market.NewStore([]string{"BTC", "ETH"})
	provider := &fakeProvider{candles: map[string][]domain.Candle{
		"BTC": risingCandles(20),
		"ETH": risingCandles(20),
	}}

	eng := NewEngine(provider, store, func() int { return 14 }, "15m", 24*time.Hour, 5*time.Minute, discardLogger())
	eng.RefreshAll(context.Background())

	for _, token := range []string{"BTC", "ETH"} {
		st, _ := store.Get(token)
		if st.RSI != 100 { // strictly rising closes
			t.Errorf("%s: expected RSI=100 for rising closes, got %v", token, st.RSI)
		}
		if len(st.Candles) != 20 {
			t.Errorf("%s: expected 20 candles stored, got %d", token, len(st.Candles))
		}
	}
}

func TestEngine_FetchFailureKeepsStale(t *testing.T) {
	store := market.NewStore([]string{"BTC"})
	stale := risingCandles(16)
	store.SetIndicator("BTC", 63.4, stale)

	provider := &fakeProvider{err: errors.New("503 service unavailable")}
	eng := NewEngine(provider, store, func() int { return 14 }, "15m", 24*time.Hour, 5*time.Minute, discardLogger())

	eng.RefreshAll(context.Background())

	st, _ := store.Get("BTC")
	if st.RSI != 63.4 {
		t.Errorf("failed fetch must keep previous RSI, got %v", st.RSI)
	}
	if len(st.Candles) != len(stale) {
		t.Errorf("failed fetch must keep previous candles, got %d", len(st.Candles))
	}
}

func TestEngine_EmptyResponseKeepsStale(t *testing.T) {
	store := market.NewStore([]string{"BTC"})
	store.SetIndicator("BTC", 70.1, risingCandles(16))

	provider := &fakeProvider{candles: map[string][]domain.Candle{}} // empty for BTC
	eng := NewEngine(provider, store, func() int { return 14 }, "15m", 24*time.Hour, 5*time.Minute, discardLogger())

	eng.RefreshAll(context.Background())

	st, _ := store.Get("BTC")
	if st.RSI != 70.1 {
		t.Errorf("empty response must keep previous RSI, got %v", st.RSI)
	}
}

func TestEngine_RunRefreshesImmediately(t *testing.T) {
	store := market.NewStore([]string{"BTC"})
	provider := &fakeProvider{candles: map[string][]domain.Candle{"BTC": risingCandles(20)}}

	eng := NewEngine(provider, store, func() int { return 14 }, "15m", 24*time.Hour, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		st, _ := store.Get("BTC")
		if st.RSI == 100 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Run did not refresh immediately")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
