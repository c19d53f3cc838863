package position

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
	"github.com/lfvieira/hypershort/internal/notify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBook(t *testing.T, params TradeParams) (*Book, *market.Store) {
	t.Helper()
	store := market.NewStore([]string{"BTC", "ETH"})
	notifier := notify.NewNotifier(nil, nil, discardLogger())
	book := NewBook(store, func() TradeParams { return params }, domain.NopBus{}, notifier, discardLogger())
	return book, store
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOpenComputesLevels(t *testing.T) {
	book, store := testBook(t, TradeParams{Size: 100, Leverage: 5, StopLossPct: 2, TakeProfitPct: 3})
	store.ApplyMid("BTC", 100)

	pos, err := book.Open(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !almostEqual(pos.StopLoss, 102) {
		t.Errorf("StopLoss = %v, want 102", pos.StopLoss)
	}
	if !almostEqual(pos.TakeProfit, 97) {
		t.Errorf("TakeProfit = %v, want 97", pos.TakeProfit)
	}
	if pos.TakeProfit >= pos.EntryPrice || pos.EntryPrice >= pos.StopLoss {
		t.Errorf("want TakeProfit < EntryPrice < StopLoss, got %v / %v / %v",
			pos.TakeProfit, pos.EntryPrice, pos.StopLoss)
	}
	if pos.Status != domain.PositionStatusOpen {
		t.Errorf("Status = %q, want open", pos.Status)
	}
}

func TestOpenWithoutPrice(t *testing.T) {
	book, _ := testBook(t, TradeParams{Size: 100, Leverage: 5, StopLossPct: 2, TakeProfitPct: 3})

	if _, err := book.Open(context.Background(), "BTC"); err == nil {
		t.Fatal("Open with no price succeeded, want error")
	}
	if _, err := book.Open(context.Background(), "DOGE"); err == nil {
		t.Fatal("Open for untracked token succeeded, want error")
	}
	if n := book.OpenCount(); n != 0 {
		t.Errorf("OpenCount = %d after failed opens, want 0", n)
	}
}

func TestMarkToMarketPnL(t *testing.T) {
	book, store := testBook(t, TradeParams{Size: 100, Leverage: 5, StopLossPct: 2, TakeProfitPct: 3})
	store.ApplyMid("BTC", 100)
	if _, err := book.Open(context.Background(), "BTC"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Price rises 1%: a 5x short loses 5%.
	book.MarkToMarket("BTC", 101)
	open := book.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("len(open) = %d, want 1", len(open))
	}
	if !almostEqual(open[0].PnLPct, -5) {
		t.Errorf("PnLPct = %v, want -5", open[0].PnLPct)
	}
	if !almostEqual(open[0].PnL, -5) {
		t.Errorf("PnL = %v, want -5", open[0].PnL)
	}

	// Price drops 2%: +10%.
	book.MarkToMarket("BTC", 98)
	open = book.OpenPositions()
	if !almostEqual(open[0].PnLPct, 10) {
		t.Errorf("PnLPct = %v, want 10", open[0].PnLPct)
	}
}

func TestStopLossCloses(t *testing.T) {
	book, store := testBook(t, TradeParams{Size: 100, Leverage: 5, StopLossPct: 2, TakeProfitPct: 3})
	store.ApplyMid("BTC", 100)
	if _, err := book.Open(context.Background(), "BTC"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	book.MarkToMarket("BTC", 102)
	drainCloser(t, book)

	if n := book.OpenCount(); n != 0 {
		t.Fatalf("OpenCount = %d after stop-loss, want 0", n)
	}
	closed := book.ClosedPositions()
	if len(closed) != 1 {
		t.Fatalf("len(closed) = %d, want 1", len(closed))
	}
	if closed[0].CloseReason != ReasonStopLoss {
		t.Errorf("CloseReason = %q, want %q", closed[0].CloseReason, ReasonStopLoss)
	}
	if closed[0].ExitPrice == nil || !almostEqual(*closed[0].ExitPrice, 102) {
		t.Errorf("ExitPrice = %v, want 102", closed[0].ExitPrice)
	}
	if !almostEqual(closed[0].PnLPct, -10) {
		t.Errorf("PnLPct = %v, want -10", closed[0].PnLPct)
	}
}

func TestTakeProfitCloses(t *testing.T) {
	book, store := testBook(t, TradeParams{Size: 100, Leverage: 5, StopLossPct: 2, TakeProfitPct: 3})
	store.ApplyMid("BTC", 100)
	if _, err := book.Open(context.Background(), "BTC"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	book.MarkToMarket("BTC", 97)
	drainCloser(t, book)

	closed := book.ClosedPositions()
	if len(closed) != 1 {
		t.Fatalf("len(closed) = %d, want 1", len(closed))
	}
	if closed[0].CloseReason != ReasonTakeProfit {
		t.Errorf("CloseReason = %q, want %q", closed[0].CloseReason, ReasonTakeProfit)
	}
	if !almostEqual(closed[0].PnLPct, 15) {
		t.Errorf("PnLPct = %v, want 15", closed[0].PnLPct)
	}
}

func TestTriggerFiresOnce(t *testing.T) {
	book, store := testBook(t, TradeParams{Size: 100, Leverage: 5, StopLossPct: 2, TakeProfitPct: 3})
	store.ApplyMid("BTC", 100)
	if _, err := book.Open(context.Background(), "BTC"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Many concurrent updates past the stop must schedule exactly one close.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			book.MarkToMarket("BTC", 105)
		}()
	}
	wg.Wait()
	drainCloser(t, book)

	if got := len(book.ClosedPositions()); got != 1 {
		t.Fatalf("len(closed) = %d, want 1", got)
	}
}

func TestManualClose(t *testing.T) {
	book, store := testBook(t, TradeParams{Size: 100, Leverage: 5, StopLossPct: 2, TakeProfitPct: 3})
	store.ApplyMid("BTC", 100)
	pos, err := book.Open(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	book.MarkToMarket("BTC", 99)

	book.Close(context.Background(), pos.ID)
	closed := book.ClosedPositions()
	if len(closed) != 1 {
		t.Fatalf("len(closed) = %d, want 1", len(closed))
	}
	if closed[0].CloseReason != ReasonManual {
		t.Errorf("CloseReason = %q, want %q", closed[0].CloseReason, ReasonManual)
	}

	// Closing again, or closing an unknown id, changes nothing.
	book.Close(context.Background(), pos.ID)
	book.Close(context.Background(), "no-such-id")
	if got := len(book.ClosedPositions()); got != 1 {
		t.Errorf("len(closed) = %d after duplicate close, want 1", got)
	}
}

func TestMarkToMarketIgnoresOtherTokens(t *testing.T) {
	book, store := testBook(t, TradeParams{Size: 100, Leverage: 5, StopLossPct: 2, TakeProfitPct: 3})
	store.ApplyMid("BTC", 100)
	if _, err := book.Open(context.Background(), "BTC"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	book.MarkToMarket("ETH", 5000)
	open := book.OpenPositions()
	if !almostEqual(open[0].CurrentPrice, 100) {
		t.Errorf("CurrentPrice = %v after unrelated update, want 100", open[0].CurrentPrice)
	}
}

// drainCloser runs the closer worker long enough to consume pending close
// requests.
func drainCloser(t *testing.T, book *Book) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = book.RunCloser(ctx)
}
