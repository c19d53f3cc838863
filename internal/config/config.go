// Package config defines the top-level configuration for the short bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by HYPERSHORT_* environment variables.
type Config struct {
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Engine      EngineConfig      `toml:"engine"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	LogLevel    string            `toml:"log_level"`
}

// HyperliquidConfig holds Hyperliquid API endpoints.
type HyperliquidConfig struct {
	APIHost string `toml:"api_host"`
	WsHost  string `toml:"ws_host"`
}

// EngineConfig holds the decision-core parameters.
type EngineConfig struct {
	Tokens          []string `toml:"tokens"`
	WatchedToken    string   `toml:"watched_token"`
	Leverage        int      `toml:"leverage"`
	PositionSize    float64  `toml:"position_size"`
	StopLossPct     float64  `toml:"stop_loss_pct"`
	TakeProfitPct   float64  `toml:"take_profit_pct"`
	RSIThreshold    float64  `toml:"rsi_threshold"`
	RSIPeriod       int      `toml:"rsi_period"`
	UseRSI          bool     `toml:"use_rsi"`
	AutoTrade       bool     `toml:"auto_trade"`
	StartActive     bool     `toml:"start_active"`
	SignalHistory   int      `toml:"signal_history"`
	CheckInterval   duration `toml:"check_interval"`
	CandleInterval  string   `toml:"candle_interval"`
	CandleLookback  duration `toml:"candle_lookback"`
	RefreshInterval duration `toml:"refresh_interval"`
	ReconnectDelay  duration `toml:"reconnect_delay"`
}

// RedisConfig holds Redis connection parameters. An empty addr disables the
// price mirror and event bus.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration: a paper-trading setup watching
// BTC with conservative detection parameters and every external surface
// (Redis, HTTP, notifications) switched off.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			APIHost: "https://api.hyperliquid.xyz",
			WsHost:  "wss://api.hyperliquid.xyz/ws",
		},
		Engine: EngineConfig{
			Tokens:          []string{"BTC", "ETH", "SOL", "HYPE"},
			WatchedToken:    "BTC",
			Leverage:        5,
			PositionSize:    100,
			StopLossPct:     2,
			TakeProfitPct:   3,
			RSIThreshold:    70,
			RSIPeriod:       14,
			UseRSI:          true,
			AutoTrade:       false,
			StartActive:     false,
			SignalHistory:   20,
			CheckInterval:   duration{30 * time.Second},
			CandleInterval:  "15m",
			CandleLookback:  duration{24 * time.Hour},
			RefreshInterval: duration{5 * time.Minute},
			ReconnectDelay:  duration{5 * time.Second},
		},
		Redis: RedisConfig{
			Addr:       "",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    8080,
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validCandleIntervals = map[string]bool{
	"1m": true, "5m": true, "15m": true, "1h": true, "4h": true, "1d": true,
}

// Validate checks the configuration for internal consistency and returns an
// error listing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Hyperliquid.APIHost == "" {
		errs = append(errs, "hyperliquid: api_host must not be empty")
	}
	if c.Hyperliquid.WsHost == "" {
		errs = append(errs, "hyperliquid: ws_host must not be empty")
	}

	e := &c.Engine
	if len(e.Tokens) == 0 {
		errs = append(errs, "engine: tokens must not be empty")
	}
	watched := false
	for _, t := range e.Tokens {
		if t == e.WatchedToken {
			watched = true
			break
		}
	}
	if !watched {
		errs = append(errs, fmt.Sprintf("engine: watched_token %q is not in tokens", e.WatchedToken))
	}
	if e.Leverage < 1 {
		errs = append(errs, fmt.Sprintf("engine: leverage must be >= 1, got %d", e.Leverage))
	}
	if e.PositionSize <= 0 {
		errs = append(errs, "engine: position_size must be positive")
	}
	if e.StopLossPct <= 0 {
		errs = append(errs, "engine: stop_loss_pct must be positive")
	}
	if e.TakeProfitPct <= 0 || e.TakeProfitPct >= 100 {
		errs = append(errs, fmt.Sprintf("engine: take_profit_pct must be in (0, 100), got %v", e.TakeProfitPct))
	}
	if e.RSIThreshold <= 0 || e.RSIThreshold >= 100 {
		errs = append(errs, fmt.Sprintf("engine: rsi_threshold must be in (0, 100), got %v", e.RSIThreshold))
	}
	if e.RSIPeriod < 2 {
		errs = append(errs, fmt.Sprintf("engine: rsi_period must be >= 2, got %d", e.RSIPeriod))
	}
	if e.SignalHistory <= 0 {
		errs = append(errs, fmt.Sprintf("engine: signal_history must be positive, got %d", e.SignalHistory))
	}
	if !validCandleIntervals[e.CandleInterval] {
		errs = append(errs, fmt.Sprintf("engine: unknown candle_interval %q (valid: 1m, 5m, 15m, 1h, 4h, 1d)", e.CandleInterval))
	}
	if e.CandleLookback.Duration <= 0 {
		errs = append(errs, "engine: candle_lookback must be positive")
	}
	if e.RefreshInterval.Duration <= 0 {
		errs = append(errs, "engine: refresh_interval must be positive")
	}
	if e.ReconnectDelay.Duration <= 0 {
		errs = append(errs, "engine: reconnect_delay must be positive")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be in (0, 65535], got %d", c.Server.Port))
	}

	// Telegram needs both the token and the chat id.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
