package detector

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
	"github.com/lfvieira/hypershort/internal/notify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type detectorFixture struct {
	det   *Detector
	store *market.Store
	opens []string
	clock time.Time
}

func newFixture(t *testing.T, useRSI, autoTrade bool) *detectorFixture {
	t.Helper()
	f := &detectorFixture{
		store: market.NewStore([]string{"BTC", "ETH"}),
		clock: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	opts := Options{
		Watched:      func() string { return "BTC" },
		Threshold:    func() float64 { return 70 },
		UseRSI:       func() bool { return useRSI },
		PollInterval: func() time.Duration { return time.Second },
		AutoTrade:    func() bool { return autoTrade },
	}
	open := func(ctx context.Context, token string) error {
		f.opens = append(f.opens, token)
		return nil
	}
	notifier := notify.NewNotifier(nil, nil, discardLogger())
	f.det = New(f.store, opts, open, domain.NopBus{}, notifier, 3, discardLogger())
	f.det.now = func() time.Time { return f.clock }
	return f
}

func (f *detectorFixture) setMarket(t *testing.T, price, rsi float64) {
	t.Helper()
	if _, ok := f.store.ApplyMid("BTC", price); !ok {
		t.Fatal("ApplyMid rejected BTC")
	}
	if !f.store.SetIndicator("BTC", rsi, nil) {
		t.Fatal("SetIndicator rejected BTC")
	}
}

func TestEvaluateFiresAboveThreshold(t *testing.T) {
	f := newFixture(t, true, false)
	f.setMarket(t, 50000, 75)

	f.det.Evaluate(context.Background())

	recent := f.det.Recent()
	if len(recent) != 1 {
		t.Fatalf("len(recent) = %d, want 1", len(recent))
	}
	sig := recent[0]
	if sig.Token != "BTC" || sig.Kind != domain.SignalKindShort {
		t.Errorf("signal = %+v, want BTC SHORT", sig)
	}
	if sig.Price != 50000 || sig.RSI != 75 {
		t.Errorf("Price/RSI = %v/%v, want 50000/75", sig.Price, sig.RSI)
	}
	if sig.ID == "" {
		t.Error("signal ID is empty")
	}
	if len(f.opens) != 0 {
		t.Errorf("auto-trade fired with AutoTrade off: %v", f.opens)
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	f := newFixture(t, true, false)
	f.setMarket(t, 50000, 70) // exactly at threshold: strictly-above rule

	f.det.Evaluate(context.Background())

	if got := len(f.det.Recent()); got != 0 {
		t.Fatalf("len(recent) = %d at threshold, want 0", got)
	}
}

func TestEvaluateRSIDisabled(t *testing.T) {
	f := newFixture(t, false, false)
	f.setMarket(t, 50000, 99)

	f.det.Evaluate(context.Background())

	if got := len(f.det.Recent()); got != 0 {
		t.Fatalf("len(recent) = %d with RSI off, want 0", got)
	}
}

func TestEvaluateNoPrice(t *testing.T) {
	f := newFixture(t, true, false)
	if !f.store.SetIndicator("BTC", 90, nil) {
		t.Fatal("SetIndicator rejected BTC")
	}

	f.det.Evaluate(context.Background())

	if got := len(f.det.Recent()); got != 0 {
		t.Fatalf("len(recent) = %d without a price, want 0", got)
	}
}

func TestDebounceWindow(t *testing.T) {
	f := newFixture(t, true, false)
	f.setMarket(t, 50000, 80)

	f.det.Evaluate(context.Background())
	f.clock = f.clock.Add(30 * time.Second)
	f.det.Evaluate(context.Background())
	if got := len(f.det.Recent()); got != 1 {
		t.Fatalf("len(recent) = %d inside debounce window, want 1", got)
	}

	// The suppressed attempt must not extend the window: a minute after the
	// first signal the next one fires.
	f.clock = f.clock.Add(30 * time.Second)
	f.det.Evaluate(context.Background())
	if got := len(f.det.Recent()); got != 2 {
		t.Fatalf("len(recent) = %d after debounce window, want 2", got)
	}
}

func TestHistoryBounded(t *testing.T) {
	f := newFixture(t, true, false)
	f.setMarket(t, 50000, 80)

	for i := 0; i < 5; i++ {
		f.det.Evaluate(context.Background())
		f.clock = f.clock.Add(2 * time.Minute)
	}

	recent := f.det.Recent()
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want cap 3", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i-1].CreatedAt.Before(recent[i].CreatedAt) {
			t.Errorf("recent[%d] older than recent[%d], want newest first", i-1, i)
		}
	}
}

func TestAutoTradeOpensShort(t *testing.T) {
	f := newFixture(t, true, true)
	f.setMarket(t, 50000, 80)

	f.det.Evaluate(context.Background())

	if len(f.opens) != 1 || f.opens[0] != "BTC" {
		t.Fatalf("opens = %v, want [BTC]", f.opens)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, true, false)
	f.setMarket(t, 50000, 80)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.det.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if got := len(f.det.Recent()); got != 1 {
		t.Errorf("len(recent) = %d, want 1 from the immediate first cycle", got)
	}
}
