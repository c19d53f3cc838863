package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if cfg.Engine.WatchedToken != def.Engine.WatchedToken {
		t.Errorf("WatchedToken = %q, want default %q", cfg.Engine.WatchedToken, def.Engine.WatchedToken)
	}
	if cfg.Engine.CheckInterval.Duration != 30*time.Second {
		t.Errorf("CheckInterval = %v, want 30s", cfg.Engine.CheckInterval.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"

[engine]
watched_token = "ETH"
leverage = 3
check_interval = "45s"

[server]
enabled = true
port = 9000
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HYPERSHORT_ENGINE_LEVERAGE", "7")
	t.Setenv("HYPERSHORT_ENGINE_TOKENS", "BTC, ETH ,SOL")
	t.Setenv("HYPERSHORT_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Engine.WatchedToken != "ETH" {
		t.Errorf("WatchedToken = %q, want ETH from file", cfg.Engine.WatchedToken)
	}
	if cfg.Engine.CheckInterval.Duration != 45*time.Second {
		t.Errorf("CheckInterval = %v, want 45s from file", cfg.Engine.CheckInterval.Duration)
	}
	if cfg.Engine.Leverage != 7 {
		t.Errorf("Leverage = %d, want env override 7", cfg.Engine.Leverage)
	}
	if got := cfg.Engine.Tokens; len(got) != 3 || got[0] != "BTC" || got[1] != "ETH" || got[2] != "SOL" {
		t.Errorf("Tokens = %v, want [BTC ETH SOL]", got)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want env override", cfg.Redis.Addr)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9000 {
		t.Errorf("Server = %+v, want enabled on 9000", cfg.Server)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Engine.WatchedToken = "DOGE"
	cfg.Engine.Leverage = 0
	cfg.Engine.RSIThreshold = 150
	cfg.Notify.TelegramToken = "token-without-chat-id"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed, want errors")
	}
	for _, want := range []string{"log_level", "watched_token", "leverage", "rsi_threshold", "telegram"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("engine = not-toml"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load of malformed TOML succeeded, want error")
	}
}
