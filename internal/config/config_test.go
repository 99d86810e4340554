package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"arena/logging"
)

func writeEnvFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutEnvFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadLayersFileEnvAndFlags(t *testing.T) {
	path := writeEnvFile(t, `
ARENA_HTTP_ADDRESS=:9000
ARENA_TICKS_PER_SECOND=20
ARENA_MAX_PLAYERS=4
ARENA_LOG_SINKS=console, json
ARENA_LOG_JSON_PATH=/tmp/arena.jsonl
ARENA_LOG_LEVEL=DEBUG
`)
	t.Setenv(EnvMaxPlayers, "8")

	cfg, err := Load(path, []string{"-clnt_deploy_dir", "/srv/client"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTPAddress != ":9000" {
		t.Fatalf("expected address from file, got %q", cfg.HTTPAddress)
	}
	if cfg.TicksPerSecond != 20 {
		t.Fatalf("expected 20 ticks per second, got %d", cfg.TicksPerSecond)
	}
	if cfg.MaxPlayers != 8 {
		t.Fatalf("expected environment to override file, got %d players", cfg.MaxPlayers)
	}
	if !reflect.DeepEqual(cfg.LogSinks, []string{"console", "json"}) {
		t.Fatalf("unexpected sinks %v", cfg.LogSinks)
	}
	if cfg.LogLevel != logging.SeverityDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.ClientDir != "/srv/client" {
		t.Fatalf("expected client dir from flag, got %q", cfg.ClientDir)
	}

	settings := cfg.Settings()
	if settings.TicksPerSecond != 20 || settings.MaxNumPlayers != 8 {
		t.Fatalf("settings ignore overrides: %+v", settings)
	}
	if err := settings.Validate(); err != nil {
		t.Fatalf("settings invalid: %v", err)
	}

	logCfg := cfg.Logging()
	if !logCfg.HasSink("json") || logCfg.JSON.FilePath != "/tmp/arena.jsonl" || logCfg.MinimumSeverity != logging.SeverityDebug {
		t.Fatalf("unexpected logging config %+v", logCfg)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv(EnvHTTPAddress, ":7000")

	cfg, err := Load("", []string{"-http_address", "127.0.0.1:7001"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddress != "127.0.0.1:7001" {
		t.Fatalf("expected flag to win, got %q", cfg.HTTPAddress)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv(EnvTicksPerSecond, "fast")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected invalid tick rate to fail")
	}
}

func TestLoadRejectsUnknownFlags(t *testing.T) {
	if _, err := Load("", []string{"-bogus"}); err == nil {
		t.Fatalf("expected unknown flag to fail")
	}
}
