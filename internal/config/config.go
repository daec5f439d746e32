// Package config loads client settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Default values.
const (
	DefaultServer       = "http://localhost:5000"
	DefaultPrefix       = "/api/todos"
	DefaultTimeout      = 10 * time.Second
	DefaultStateBackend = BackendJSON
	DefaultLogLevel     = "warn"
	DefaultNoticeTTL    = 3 * time.Second
	DefaultWatchEvery   = time.Minute

	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	appDir = ".tada"
)

// Duration decodes "10s"-style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Config holds every knob of the client.
type Config struct {
	Server          string   `toml:"server"`
	Prefix          string   `toml:"prefix"`
	Timeout         Duration `toml:"timeout"`
	StrictResponses bool     `toml:"strict_responses"`

	StateBackend string `toml:"state_backend"`
	StatePath    string `toml:"state_path"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`

	// Theme forces a theme for this run; empty uses the stored preference.
	Theme     string   `toml:"theme"`
	NoColor   bool     `toml:"no_color"`
	NoticeTTL Duration `toml:"notice_ttl"`

	WatchEvery Duration `toml:"watch_every"`

	// Files lists the config files that were applied, in order.
	Files []string `toml:"-"`
}

func setDefaults(cfg *Config) {
	cfg.Server = DefaultServer
	cfg.Prefix = DefaultPrefix
	cfg.Timeout = Duration{DefaultTimeout}
	cfg.StateBackend = DefaultStateBackend
	cfg.LogLevel = DefaultLogLevel
	cfg.NoticeTTL = Duration{DefaultNoticeTTL}
	cfg.WatchEvery = Duration{DefaultWatchEvery}
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server %q: want an http(s) URL", c.Server)
	}
	if !strings.HasPrefix(c.Prefix, "/") {
		return fmt.Errorf("prefix %q: must start with /", c.Prefix)
	}
	if c.Prefix == "/" {
		return fmt.Errorf("prefix %q: must name a collection path", c.Prefix)
	}
	switch c.StateBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("state_backend %q: want %s or %s", c.StateBackend, BackendJSON, BackendSQLite)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	switch strings.ToLower(c.Theme) {
	case "", "light", "dark":
	default:
		return fmt.Errorf("theme %q: want light or dark", c.Theme)
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.WatchEvery.Duration < time.Second {
		return fmt.Errorf("watch_every must be at least 1s")
	}
	return nil
}

// finalizeConfig fills derived values.
func finalizeConfig(cfg *Config) error {
	cfg.Server = strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	if cfg.Prefix != "/" {
		cfg.Prefix = strings.TrimRight(cfg.Prefix, "/")
	}
	cfg.StateBackend = strings.ToLower(strings.TrimSpace(cfg.StateBackend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Theme = strings.ToLower(strings.TrimSpace(cfg.Theme))

	if cfg.StatePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("home: %w", err)
		}
		name := "state.json"
		if cfg.StateBackend == BackendSQLite {
			name = "state.db"
		}
		cfg.StatePath = filepath.Join(home, appDir, name)
	}
	cfg.StatePath = expandPath(cfg.StatePath)
	cfg.LogFile = expandPath(cfg.LogFile)
	return cfg.Validate()
}

// expandPath expands ~ and environment variables.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, strings.TrimPrefix(expanded[1:], "/"))
	}
	return expanded
}

// findProjectConfigFile looks for a config file in the current directory.
func findProjectConfigFile() string {
	for _, name := range []string{"tada.toml", ".tada.toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// findUserConfigFile checks ~/.tada/config.toml, then the OS config dir.
func findUserConfigFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, appDir, "config.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if dir := osUserConfigDir(); dir != "" {
		p := filepath.Join(dir, "tada", "config.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func osUserConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return os.Getenv("APPDATA")
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".config")
		}
	}
	return ""
}

func boolFromString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}
