// Package app provides the top-level application lifecycle: it wires the
// market store, feed supervisor, indicator engine, detector, position book,
// and optional Redis / HTTP surfaces, then runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lfvieira/hypershort/internal/config"
	"github.com/lfvieira/hypershort/internal/server"
	"github.com/lfvieira/hypershort/internal/server/handler"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, optionally
// activates the engine and starts the HTTP server, and blocks until the
// context is cancelled. On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	a.logger.InfoContext(ctx, "starting application",
		slog.String("watched_token", a.cfg.Engine.WatchedToken),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("auto_trade", a.cfg.Engine.AutoTrade),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if a.cfg.Engine.StartActive {
		if err := deps.Controller.Activate(ctx); err != nil {
			return fmt.Errorf("app: activate engine: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		}, server.Handlers{
			Health:    handler.NewHealthHandler(),
			Status:    handler.NewStatusHandler(deps.Controller),
			Engine:    handler.NewEngineHandler(deps.Controller),
			Market:    handler.NewMarketHandler(deps.Store),
			Positions: handler.NewPositionHandler(deps.Book),
			Signals:   handler.NewSignalHandler(deps.Detector),
		}, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	} else {
		g.Go(func() error {
			<-gctx.Done()
			return gctx.Err()
		})
	}

	err = g.Wait()
	deps.Controller.Shutdown(context.Background())

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
