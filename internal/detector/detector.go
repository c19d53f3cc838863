// Package detector evaluates the watched token against the overbought rule
// and emits short signals.
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
	"github.com/lfvieira/hypershort/internal/notify"
)

// debounceWindow suppresses repeat signals for the same token while the
// overbought condition persists.
const debounceWindow = time.Minute

// Options feed live engine settings into each evaluation. Reading through
// funcs means operator changes apply on the next tick without restarting the
// detector.
type Options struct {
	Watched      func() string
	Threshold    func() float64
	UseRSI       func() bool
	PollInterval func() time.Duration
	AutoTrade    func() bool
}

// OpenFunc is invoked for each detected signal when auto-trade is on.
type OpenFunc func(ctx context.Context, token string) error

// Detector runs the overbought check on a poll loop and keeps a bounded
// history of recent signals, newest first.
type Detector struct {
	store     *market.Store
	opts      Options
	openShort OpenFunc
	bus       domain.EventBus
	notifier  *notify.Notifier
	logger    *slog.Logger

	historyCap int

	mu         sync.Mutex
	lastSignal map[string]time.Time
	recent     []domain.Signal

	now func() time.Time
}

// New creates a Detector. historyCap bounds the retained signal history.
func New(store *market.Store, opts Options, openShort OpenFunc, bus domain.EventBus, notifier *notify.Notifier, historyCap int, logger *slog.Logger) *Detector {
	if historyCap <= 0 {
		historyCap = 20
	}
	return &Detector{
		store:      store,
		opts:       opts,
		openShort:  openShort,
		bus:        bus,
		notifier:   notifier,
		logger:     logger.With(slog.String("component", "detector")),
		historyCap: historyCap,
		lastSignal: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Run evaluates the watched token on every poll tick until the context is
// cancelled. The interval is re-read each cycle so setting changes take
// effect without a restart.
func (d *Detector) Run(ctx context.Context) error {
	for {
		d.Evaluate(ctx)

		timer := time.NewTimer(d.opts.PollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Evaluate runs one detection cycle for the watched token. A signal fires
// when RSI filtering is enabled, the token's RSI exceeds the threshold, and
// a live price is known. Repeat signals inside the debounce window are
// dropped without touching the debounce clock.
func (d *Detector) Evaluate(ctx context.Context) {
	if !d.opts.UseRSI() {
		return
	}

	token := d.opts.Watched()
	st, ok := d.store.Get(token)
	if !ok {
		return
	}

	threshold := d.opts.Threshold()
	if st.RSI <= threshold || st.Price <= 0 {
		return
	}

	d.mu.Lock()
	if last, seen := d.lastSignal[token]; seen && d.now().Sub(last) < debounceWindow {
		d.mu.Unlock()
		return
	}
	d.lastSignal[token] = d.now()

	sig := domain.Signal{
		ID:        uuid.NewString(),
		Token:     token,
		Kind:      domain.SignalKindShort,
		Reason:    fmt.Sprintf("RSI %.1f above %.0f", st.RSI, threshold),
		Price:     st.Price,
		RSI:       st.RSI,
		CreatedAt: d.now(),
	}
	d.recent = append([]domain.Signal{sig}, d.recent...)
	if len(d.recent) > d.historyCap {
		d.recent = d.recent[:d.historyCap]
	}
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "short signal",
		slog.String("signal_id", sig.ID),
		slog.String("token", token),
		slog.Float64("rsi", st.RSI),
		slog.Float64("threshold", threshold),
		slog.Float64("price", st.Price),
	)

	d.publish(ctx, sig)
	_ = d.notifier.Notify(ctx, notify.EventSignalDetected,
		"Short signal",
		fmt.Sprintf("%s @ %.2f, %s", sig.Token, sig.Price, sig.Reason),
	)

	if d.opts.AutoTrade() && d.openShort != nil {
		if err := d.openShort(ctx, token); err != nil {
			d.logger.WarnContext(ctx, "auto-trade open failed",
				slog.String("token", token),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Recent returns a copy of the retained signal history, newest first.
func (d *Detector) Recent() []domain.Signal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Signal(nil), d.recent...)
}

func (d *Detector) publish(ctx context.Context, sig domain.Signal) {
	payload, err := json.Marshal(sig)
	if err != nil {
		return
	}
	if err := d.bus.Publish(ctx, "signals", payload); err != nil {
		d.logger.WarnContext(ctx, "publish signal failed", slog.String("error", err.Error()))
	}
	if err := d.bus.StreamAppend(ctx, "signals", payload); err != nil {
		d.logger.WarnContext(ctx, "stream append failed", slog.String("error", err.Error()))
	}
}
