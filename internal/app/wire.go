package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lfvieira/hypershort/internal/cache/redis"
	"github.com/lfvieira/hypershort/internal/config"
	"github.com/lfvieira/hypershort/internal/detector"
	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/engine"
	"github.com/lfvieira/hypershort/internal/feed"
	"github.com/lfvieira/hypershort/internal/indicator"
	"github.com/lfvieira/hypershort/internal/market"
	"github.com/lfvieira/hypershort/internal/notify"
	"github.com/lfvieira/hypershort/internal/platform/hyperliquid"
	"github.com/lfvieira/hypershort/internal/position"
)

// Dependencies bundles everything the application needs at runtime. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store      *market.Store
	Book       *position.Book
	Detector   *detector.Detector
	Controller *engine.Controller
	Notifier   *notify.Notifier
}

// Wire constructs all concrete dependencies from the given configuration and
// returns them together with a cleanup function that should be called on
// shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Redis (optional; an empty addr disables the mirror and bus) ---
	var (
		mirror domain.PriceMirror = domain.NopMirror{}
		bus    domain.EventBus    = domain.NopBus{}
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		mirror = redis.NewPriceMirror(rdb)
		bus = redis.NewEventBus(rdb)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Core state and settings ---
	store := market.NewStore(cfg.Engine.Tokens)
	settings := engine.NewSettings(engine.SettingsInit{
		Watched:       cfg.Engine.WatchedToken,
		Threshold:     cfg.Engine.RSIThreshold,
		Period:        cfg.Engine.RSIPeriod,
		PollInterval:  cfg.Engine.CheckInterval.Duration,
		UseRSI:        cfg.Engine.UseRSI,
		AutoTrade:     cfg.Engine.AutoTrade,
		Size:          cfg.Engine.PositionSize,
		Leverage:      cfg.Engine.Leverage,
		StopLossPct:   cfg.Engine.StopLossPct,
		TakeProfitPct: cfg.Engine.TakeProfitPct,
	})

	book := position.NewBook(store, settings.TradeParams, bus, notifier, logger)

	det := detector.New(store, detector.Options{
		Watched:      settings.Watched,
		Threshold:    settings.Threshold,
		UseRSI:       settings.UseRSI,
		PollInterval: settings.PollInterval,
		AutoTrade:    settings.AutoTrade,
	}, func(ctx context.Context, token string) error {
		_, err := book.Open(ctx, token)
		return err
	}, bus, notifier, cfg.Engine.SignalHistory, logger)

	// --- Workers ---
	info := hyperliquid.NewInfoClient(cfg.Hyperliquid.APIHost)
	indicators := indicator.NewEngine(info, store, settings.Period,
		cfg.Engine.CandleInterval,
		cfg.Engine.CandleLookback.Duration,
		cfg.Engine.RefreshInterval.Duration,
		logger)

	supervisor := feed.NewSupervisor(cfg.Hyperliquid.WsHost, store, book, mirror, notifier,
		cfg.Engine.ReconnectDelay.Duration, logger)

	runners := []engine.Runner{
		supervisor,
		indicators,
		det,
		engine.RunnerFunc(book.RunCloser),
	}

	ctrl := engine.NewController(store, book, det, supervisor, settings, runners, logger)

	return &Dependencies{
		Store:      store,
		Book:       book,
		Detector:   det,
		Controller: ctrl,
		Notifier:   notifier,
	}, cleanup, nil
}
