// Package feed supervises the streaming mid-price connection: it dials,
// subscribes, dispatches updates, and reconnects after a fixed delay when
// the stream drops.
package feed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
	"github.com/lfvieira/hypershort/internal/notify"
	"github.com/lfvieira/hypershort/internal/platform/hyperliquid"
)

// MarkToMarketer receives every accepted price update for trigger
// evaluation.
type MarkToMarketer interface {
	MarkToMarket(token string, price float64)
}

// Supervisor owns the websocket connection lifecycle. All message handling
// runs on the single read loop, so updates for a token are applied in
// arrival order.
type Supervisor struct {
	wsURL          string
	store          *market.Store
	book           MarkToMarketer
	mirror         domain.PriceMirror
	notifier       *notify.Notifier
	logger         *slog.Logger
	reconnectDelay time.Duration

	connected atomic.Bool
}

// NewSupervisor creates a feed supervisor for the given stream endpoint.
func NewSupervisor(wsURL string, store *market.Store, book MarkToMarketer, mirror domain.PriceMirror, notifier *notify.Notifier, reconnectDelay time.Duration, logger *slog.Logger) *Supervisor {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Supervisor{
		wsURL:          wsURL,
		store:          store,
		book:           book,
		mirror:         mirror,
		notifier:       notifier,
		logger:         logger.With(slog.String("component", "feed")),
		reconnectDelay: reconnectDelay,
	}
}

// Connected reports whether the stream is currently up.
func (s *Supervisor) Connected() bool {
	return s.connected.Load()
}

// Run maintains the connection until the context is cancelled. Each attempt
// uses a fresh client; on any disconnect the supervisor waits the reconnect
// delay and dials again. Market state survives reconnects untouched.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if err := s.runOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "stream disconnected",
				slog.String("url", s.wsURL),
				slog.String("error", err.Error()),
			)
		}

		if s.connected.Swap(false) && ctx.Err() == nil {
			_ = s.notifier.Notify(ctx, notify.EventFeedDisconnected,
				"Feed disconnected", "price stream lost, reconnecting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context) error {
	client := hyperliquid.NewWSClient(s.wsURL)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	if err := client.SubscribeAllMids(); err != nil {
		return err
	}

	s.connected.Store(true)
	s.logger.InfoContext(ctx, "stream connected", slog.String("url", s.wsURL))
	_ = s.notifier.Notify(ctx, notify.EventFeedConnected,
		"Feed connected", "price stream established")

	return client.Listen(ctx, func(mids map[string]float64) {
		s.handleMids(ctx, mids)
	})
}

// handleMids applies each tracked token's new mid and marks open positions
// to market at the same price before the next update is read.
func (s *Supervisor) handleMids(ctx context.Context, mids map[string]float64) {
	for _, token := range s.store.Tokens() {
		price, ok := mids[token]
		if !ok {
			continue
		}
		st, ok := s.store.ApplyMid(token, price)
		if !ok {
			continue
		}
		s.book.MarkToMarket(token, price)
		if err := s.mirror.SetPrice(ctx, token, price, st.UpdatedAt); err != nil {
			s.logger.WarnContext(ctx, "price mirror update failed",
				slog.String("token", token),
				slog.String("error", err.Error()),
			)
		}
	}
}
