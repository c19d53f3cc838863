// Package position simulates the leveraged short-position lifecycle: open,
// continuous mark-to-market against the live mid, and stop-loss /
// take-profit closure.
package position

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
	"github.com/lfvieira/hypershort/internal/notify"
)

// Close reasons recorded on positions.
const (
	ReasonStopLoss   = "stop-loss"
	ReasonTakeProfit = "take-profit"
	ReasonManual     = "manual"
)

// closedHistoryCap bounds the retained closed-position history.
const closedHistoryCap = 100

// TradeParams are the sizing parameters applied at open time. They are read
// live from the engine settings so operator changes affect the next open,
// never existing positions.
type TradeParams struct {
	Size          float64 // notional, quote units
	Leverage      int
	StopLossPct   float64 // stop distance above entry, percent
	TakeProfitPct float64 // target distance below entry, percent
}

type closeRequest struct {
	id     string
	reason string
}

// Book owns all simulated positions. Trigger evaluation and the
// open->closing transition happen as one atomic step under the book lock, so
// a position is scheduled for closure at most once no matter how many price
// updates race past its stop. The actual close runs asynchronously on the
// closer worker.
type Book struct {
	store    *market.Store
	params   func() TradeParams
	bus      domain.EventBus
	notifier *notify.Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	open   map[string]*domain.Position
	closed []domain.Position // newest first, bounded

	closeCh chan closeRequest

	now func() time.Time
}

// NewBook creates an empty position book.
func NewBook(store *market.Store, params func() TradeParams, bus domain.EventBus, notifier *notify.Notifier, logger *slog.Logger) *Book {
	return &Book{
		store:    store,
		params:   params,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "position_book")),
		open:     make(map[string]*domain.Position),
		closeCh:  make(chan closeRequest, 256),
		now:      time.Now,
	}
}

// Open creates a simulated short at the token's current mid. It fails with
// domain.ErrPriceUnavailable when no price has been received yet, leaving no
// partial state behind. There is no limit on concurrently open positions per
// token.
func (b *Book) Open(ctx context.Context, token string) (domain.Position, error) {
	st, ok := b.store.Get(token)
	if !ok {
		return domain.Position{}, fmt.Errorf("position: open %s: %w", token, domain.ErrUnknownToken)
	}
	if st.Price <= 0 {
		return domain.Position{}, fmt.Errorf("position: open %s: %w", token, domain.ErrPriceUnavailable)
	}

	p := b.params()
	entry := st.Price

	pos := &domain.Position{
		ID:           uuid.NewString(),
		Token:        token,
		Kind:         domain.SignalKindShort,
		EntryPrice:   entry,
		CurrentPrice: entry,
		Size:         p.Size,
		Leverage:     p.Leverage,
		StopLoss:     entry * (1 + p.StopLossPct/100),
		TakeProfit:   entry * (1 - p.TakeProfitPct/100),
		Status:       domain.PositionStatusOpen,
		OpenedAt:     b.now(),
	}

	b.mu.Lock()
	b.open[pos.ID] = pos
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "position opened",
		slog.String("position_id", pos.ID),
		slog.String("token", token),
		slog.Float64("entry_price", entry),
		slog.Int("leverage", pos.Leverage),
		slog.Float64("stop_loss", pos.StopLoss),
		slog.Float64("take_profit", pos.TakeProfit),
	)

	b.publishEvent(ctx, "positions", map[string]any{
		"event":       notify.EventPositionOpened,
		"position_id": pos.ID,
		"token":       token,
		"entry_price": entry,
		"size":        pos.Size,
		"leverage":    pos.Leverage,
	})
	_ = b.notifier.Notify(ctx, notify.EventPositionOpened,
		"Short opened",
		fmt.Sprintf("%s @ %.2f (%dx), SL %.2f / TP %.2f", token, entry, pos.Leverage, pos.StopLoss, pos.TakeProfit),
	)

	return *pos, nil
}

// MarkToMarket recomputes PnL for every open position of token at the new
// mid and schedules closure for positions whose stop-loss or take-profit
// level was crossed. It is a pure in-memory computation except for enqueuing
// close requests, which never blocks the caller.
func (b *Book) MarkToMarket(token string, price float64) {
	if price <= 0 {
		return
	}

	var triggered []closeRequest

	b.mu.Lock()
	for _, pos := range b.open {
		if pos.Token != token || pos.Status != domain.PositionStatusOpen {
			continue
		}

		pos.CurrentPrice = price
		priceDiff := pos.EntryPrice - price
		pos.PnLPct = priceDiff / pos.EntryPrice * 100 * float64(pos.Leverage)
		pos.PnL = pos.Size * pos.PnLPct / 100

		// Trigger check and status flip are one step under the lock: a
		// position already closing is skipped above, so each position is
		// scheduled at most once.
		switch {
		case price >= pos.StopLoss:
			pos.Status = domain.PositionStatusClosing
			pos.CloseReason = ReasonStopLoss
			triggered = append(triggered, closeRequest{id: pos.ID, reason: ReasonStopLoss})
		case price <= pos.TakeProfit:
			pos.Status = domain.PositionStatusClosing
			pos.CloseReason = ReasonTakeProfit
			triggered = append(triggered, closeRequest{id: pos.ID, reason: ReasonTakeProfit})
		}
	}
	b.mu.Unlock()

	for _, req := range triggered {
		select {
		case b.closeCh <- req:
		default:
			// Queue full; close inline rather than lose the request.
			b.finalize(context.Background(), req.id, req.reason)
		}
	}
}

// RunCloser drains the close queue until the context is cancelled. Requests
// enqueued while the engine is inactive stay in the queue and are honored on
// the next activation.
func (b *Book) RunCloser(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-b.closeCh:
			b.finalize(ctx, req.id, req.reason)
		}
	}
}

// Close is the manual close path: it moves an open or closing position to
// closed. Closing an unknown or already-closed id is a no-op.
func (b *Book) Close(ctx context.Context, id string) {
	b.finalize(ctx, id, ReasonManual)
}

// finalize completes the closing -> closed transition: record final PnL,
// move the position to the bounded closed history, and emit events. Unknown
// ids are ignored.
func (b *Book) finalize(ctx context.Context, id, reason string) {
	b.mu.Lock()
	pos, ok := b.open[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.open, id)

	exit := pos.CurrentPrice
	closedAt := b.now()
	pos.Status = domain.PositionStatusClosed
	pos.CloseReason = reason
	pos.ClosedAt = &closedAt
	pos.ExitPrice = &exit

	b.closed = append([]domain.Position{*pos}, b.closed...)
	if len(b.closed) > closedHistoryCap {
		b.closed = b.closed[:closedHistoryCap]
	}
	final := *pos
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "position closed",
		slog.String("position_id", final.ID),
		slog.String("token", final.Token),
		slog.String("reason", reason),
		slog.Float64("exit_price", exit),
		slog.Float64("pnl", final.PnL),
		slog.Float64("pnl_pct", final.PnLPct),
	)

	b.publishEvent(ctx, "positions", map[string]any{
		"event":       notify.EventPositionClosed,
		"position_id": final.ID,
		"token":       final.Token,
		"reason":      reason,
		"exit_price":  exit,
		"pnl":         final.PnL,
		"pnl_pct":     final.PnLPct,
	})
	_ = b.notifier.Notify(ctx, notify.EventPositionClosed,
		"Short closed",
		fmt.Sprintf("%s @ %.2f (%s), PnL %+.2f (%+.2f%%)", final.Token, exit, reason, final.PnL, final.PnLPct),
	)
}

// OpenPositions returns copies of all open and closing positions, oldest
// first.
func (b *Book) OpenPositions() []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Position, 0, len(b.open))
	for _, pos := range b.open {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// ClosedPositions returns copies of the retained closed history, newest
// first.
func (b *Book) ClosedPositions() []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Position(nil), b.closed...)
}

// OpenCount returns the number of open and closing positions.
func (b *Book) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

func (b *Book) publishEvent(ctx context.Context, channel string, event map[string]any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := b.bus.Publish(ctx, channel, payload); err != nil {
		b.logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if err := b.bus.StreamAppend(ctx, channel, payload); err != nil {
		b.logger.WarnContext(ctx, "stream append failed",
			slog.String("stream", channel),
			slog.String("error", err.Error()),
		)
	}
}
