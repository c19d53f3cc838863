package indicator

import (
	"context"
	"log/slog"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
	"github.com/lfvieira/hypershort/internal/market"
)

// CandleProvider fetches historical candles; implemented by the Hyperliquid
// info client.
type CandleProvider interface {
	CandleSnapshot(ctx context.Context, coin, interval string, start, end time.Time) ([]domain.Candle, error)
}

// Engine keeps each tracked token's RSI current. It fetches the trailing
// candle window for every token once on start and then on a fixed cadence,
// writing results into the market store. Fetch failures leave the previous
// reading in place.
type Engine struct {
	provider CandleProvider
	store    *market.Store
	period   func() int // live RSI period from engine settings

	interval       string        // candle bucket, e.g. "15m"
	lookback       time.Duration // window, e.g. 24h
	refreshEvery   time.Duration // cadence, e.g. 5m
	requestTimeout time.Duration

	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates an indicator engine. period is read per refresh so
// operator changes take effect on the next cycle.
func NewEngine(provider CandleProvider, store *market.Store, period func() int, interval string, lookback, refreshEvery time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		provider:       provider,
		store:          store,
		period:         period,
		interval:       interval,
		lookback:       lookback,
		refreshEvery:   refreshEvery,
		requestTimeout: 30 * time.Second,
		logger:         logger.With(slog.String("component", "indicator_engine")),
		now:            time.Now,
	}
}

// Run refreshes all tokens immediately, then on every tick until the context
// is cancelled. It never returns an error other than the context's: fetch
// failures only degrade freshness.
func (e *Engine) Run(ctx context.Context) error {
	e.RefreshAll(ctx)

	ticker := time.NewTicker(e.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.RefreshAll(ctx)
		}
	}
}

// RefreshAll fetches the trailing candle window for every tracked token and
// stores the recomputed RSI. A failed fetch is logged and leaves that
// token's previous RSI and candles untouched.
func (e *Engine) RefreshAll(ctx context.Context) {
	period := e.period()

	for _, token := range e.store.Tokens() {
		if ctx.Err() != nil {
			return
		}
		e.refreshToken(ctx, token, period)
	}
}

func (e *Engine) refreshToken(ctx context.Context, token string, period int) {
	end := e.now()
	start := end.Add(-e.lookback)

	fetchCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	candles, err := e.provider.CandleSnapshot(fetchCtx, token, e.interval, start, end)
	if err != nil {
		e.logger.Warn("candle fetch failed, keeping stale indicator",
			slog.String("token", token),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(candles) == 0 {
		e.logger.Warn("candle fetch returned no data",
			slog.String("token", token),
		)
		return
	}

	closes := make([]float64, len(candles))
	for i := range candles {
		closes[i] = candles[i].Close
	}

	rsi := RSI(closes, period)
	e.store.SetIndicator(token, rsi, candles)

	e.logger.Debug("indicator refreshed",
		slog.String("token", token),
		slog.Float64("rsi", rsi),
		slog.Int("candles", len(candles)),
	)
}
