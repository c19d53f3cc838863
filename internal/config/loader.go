package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies HYPERSHORT_* environment variable overrides,
// and returns the final Config. A missing file is not an error; the defaults
// plus environment overrides apply. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HYPERSHORT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.APIHost, "HYPERSHORT_HYPERLIQUID_API_HOST")
	setStr(&cfg.Hyperliquid.WsHost, "HYPERSHORT_HYPERLIQUID_WS_HOST")

	// ── Engine ──
	setStringSlice(&cfg.Engine.Tokens, "HYPERSHORT_ENGINE_TOKENS")
	setStr(&cfg.Engine.WatchedToken, "HYPERSHORT_ENGINE_WATCHED_TOKEN")
	setInt(&cfg.Engine.Leverage, "HYPERSHORT_ENGINE_LEVERAGE")
	setFloat64(&cfg.Engine.PositionSize, "HYPERSHORT_ENGINE_POSITION_SIZE")
	setFloat64(&cfg.Engine.StopLossPct, "HYPERSHORT_ENGINE_STOP_LOSS_PCT")
	setFloat64(&cfg.Engine.TakeProfitPct, "HYPERSHORT_ENGINE_TAKE_PROFIT_PCT")
	setFloat64(&cfg.Engine.RSIThreshold, "HYPERSHORT_ENGINE_RSI_THRESHOLD")
	setInt(&cfg.Engine.RSIPeriod, "HYPERSHORT_ENGINE_RSI_PERIOD")
	setBool(&cfg.Engine.UseRSI, "HYPERSHORT_ENGINE_USE_RSI")
	setBool(&cfg.Engine.AutoTrade, "HYPERSHORT_ENGINE_AUTO_TRADE")
	setBool(&cfg.Engine.StartActive, "HYPERSHORT_ENGINE_START_ACTIVE")
	setInt(&cfg.Engine.SignalHistory, "HYPERSHORT_ENGINE_SIGNAL_HISTORY")
	setDuration(&cfg.Engine.CheckInterval, "HYPERSHORT_ENGINE_CHECK_INTERVAL")
	setStr(&cfg.Engine.CandleInterval, "HYPERSHORT_ENGINE_CANDLE_INTERVAL")
	setDuration(&cfg.Engine.CandleLookback, "HYPERSHORT_ENGINE_CANDLE_LOOKBACK")
	setDuration(&cfg.Engine.RefreshInterval, "HYPERSHORT_ENGINE_REFRESH_INTERVAL")
	setDuration(&cfg.Engine.ReconnectDelay, "HYPERSHORT_ENGINE_RECONNECT_DELAY")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HYPERSHORT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HYPERSHORT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HYPERSHORT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "HYPERSHORT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "HYPERSHORT_REDIS_MAX_RETRIES")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "HYPERSHORT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "HYPERSHORT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "HYPERSHORT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "HYPERSHORT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "HYPERSHORT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "HYPERSHORT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "HYPERSHORT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "HYPERSHORT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "HYPERSHORT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
