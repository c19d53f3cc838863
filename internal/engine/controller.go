// Package engine coordinates the decision core: runtime settings and the
// activate/deactivate lifecycle of the feed, indicator, detector, and
// position workers.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lfvieira/hypershort/internal/detector"
	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
	"github.com/lfvieira/hypershort/internal/position"
)

// Runner is a long-lived worker driven by the controller's lifecycle.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// ConnStatus reports the feed connection state.
type ConnStatus interface {
	Connected() bool
}

// Controller owns the engine on/off switch. Activation starts every runner
// under one errgroup; deactivation cancels them and waits. Market state, the
// position book, and the signal history all survive deactivation.
type Controller struct {
	store    *market.Store
	book     *position.Book
	detector *detector.Detector
	feed     ConnStatus
	settings *Settings
	runners  []Runner
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wait   func() error
}

// NewController wires the controller. runners are started in order on each
// activation.
func NewController(store *market.Store, book *position.Book, det *detector.Detector, feed ConnStatus, settings *Settings, runners []Runner, logger *slog.Logger) *Controller {
	return &Controller{
		store:    store,
		book:     book,
		detector: det,
		feed:     feed,
		settings: settings,
		runners:  runners,
		logger:   logger.With(slog.String("component", "engine")),
	}
}

// Active reports whether the engine workers are running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Activate starts all runners. It fails with domain.ErrEngineActive when the
// engine is already running.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return domain.ErrEngineActive
	}

	// Runners must outlive the caller (an HTTP request, typically), so the
	// lifecycle is bound to the controller's cancel func alone.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	for _, r := range c.runners {
		r := r
		g.Go(func() error { return r.Run(gctx) })
	}

	c.cancel = cancel
	c.wait = g.Wait

	c.logger.InfoContext(ctx, "engine activated", slog.Int("runners", len(c.runners)))
	return nil
}

// Deactivate stops all runners and waits for them to exit. It fails with
// domain.ErrEngineInactive when the engine is not running. Pending close
// requests in the position book stay queued for the next activation.
func (c *Controller) Deactivate(ctx context.Context) error {
	c.mu.Lock()
	cancel, wait := c.cancel, c.wait
	c.cancel, c.wait = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return domain.ErrEngineInactive
	}

	cancel()
	if err := wait(); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.WarnContext(ctx, "runner exited with error", slog.String("error", err.Error()))
	}

	c.logger.InfoContext(ctx, "engine deactivated")
	return nil
}

// Shutdown stops the engine if it is running. Unlike Deactivate it is not an
// error to call it on an inactive engine.
func (c *Controller) Shutdown(ctx context.Context) {
	if err := c.Deactivate(ctx); err != nil && !errors.Is(err, domain.ErrEngineInactive) {
		c.logger.WarnContext(ctx, "shutdown", slog.String("error", err.Error()))
	}
}

// Snapshot assembles a point-in-time view of the whole engine for the status
// API. Sections are collected one after another, so the view is coherent per
// section rather than globally transactional.
func (c *Controller) Snapshot() domain.EngineSnapshot {
	return domain.EngineSnapshot{
		Active:          c.Active(),
		FeedConnected:   c.feed.Connected(),
		Instruments:     c.store.Snapshot(),
		OpenPositions:   c.book.OpenPositions(),
		ClosedPositions: c.book.ClosedPositions(),
		RecentSignals:   c.detector.Recent(),
		GeneratedAt:     time.Now(),
	}
}

// Settings exposes the runtime-tunable knobs.
func (c *Controller) Settings() *Settings {
	return c.settings
}
