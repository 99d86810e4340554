// Package config assembles server settings from an optional .env file, the
// process environment and command-line flags, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"arena/internal/game"
	"arena/logging"
)

const (
	EnvHTTPAddress    = "ARENA_HTTP_ADDRESS"
	EnvClientDir      = "ARENA_CLIENT_DIR"
	EnvTicksPerSecond = "ARENA_TICKS_PER_SECOND"
	EnvMaxPlayers     = "ARENA_MAX_PLAYERS"
	EnvLogSinks       = "ARENA_LOG_SINKS"
	EnvLogJSONPath    = "ARENA_LOG_JSON_PATH"
	EnvLogLevel       = "ARENA_LOG_LEVEL"
)

// Config is the resolved server configuration.
type Config struct {
	HTTPAddress    string
	ClientDir      string
	TicksPerSecond int
	MaxPlayers     int
	LogSinks       []string
	LogJSONPath    string
	LogLevel       logging.Severity
}

func Default() Config {
	settings := game.DefaultSettings()
	return Config{
		HTTPAddress:    ":8080",
		TicksPerSecond: settings.TicksPerSecond,
		MaxPlayers:     settings.MaxNumPlayers,
		LogSinks:       []string{"console"},
		LogLevel:       logging.SeverityInfo,
	}
}

// Load reads envFile (skipped when missing), then the environment, then
// args. Variables already set in the environment win over the file.
func Load(envFile string, args []string) (Config, error) {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := fileVars[key]
		return value, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.StringVar(&cfg.HTTPAddress, "http_address", cfg.HTTPAddress, "address the HTTP server listens on")
	flags.StringVar(&cfg.ClientDir, "clnt_deploy_dir", cfg.ClientDir, "directory holding index.html, clnt.js and clnt.wasm")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHTTPAddress); ok && v != "" {
		c.HTTPAddress = v
	}
	if v, ok := lookup(EnvClientDir); ok {
		c.ClientDir = v
	}
	if v, ok := lookup(EnvTicksPerSecond); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s=%q", EnvTicksPerSecond, v)
		}
		c.TicksPerSecond = n
	}
	if v, ok := lookup(EnvMaxPlayers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s=%q", EnvMaxPlayers, v)
		}
		c.MaxPlayers = n
	}
	if v, ok := lookup(EnvLogSinks); ok {
		c.LogSinks = splitList(v)
	}
	if v, ok := lookup(EnvLogJSONPath); ok {
		c.LogJSONPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = logging.ParseSeverity(strings.ToLower(v))
	}
	return nil
}

// Settings returns the default world with the configured overrides.
func (c Config) Settings() game.Settings {
	settings := game.DefaultSettings()
	settings.TicksPerSecond = c.TicksPerSecond
	settings.MaxNumPlayers = c.MaxPlayers
	return settings
}

// Logging returns the router configuration for the configured sinks.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = append([]string(nil), c.LogSinks...)
	cfg.MinimumSeverity = c.LogLevel
	cfg.JSON.FilePath = c.LogJSONPath
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
