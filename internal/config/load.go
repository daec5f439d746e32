package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load builds the configuration from, in increasing priority:
// 1. Defaults
// 2. User config file (~/.tada/config.toml or OS-specific config dir)
// 3. Project config file (tada.toml or .tada.toml in current directory)
// 4. File named by --config or TADA_CONFIG
// 5. Environment variables
// 6. CLI flags
//
// Flags are registered on fs and parsed from args; positional arguments are
// left in fs.Args().
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	if fs == nil {
		fs = flag.NewFlagSet("tada", flag.ContinueOnError)
	}
	fv := bindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := &Config{}
	setDefaults(cfg)

	if p := findUserConfigFile(); p != "" {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", p, err)
		}
	}
	if p := findProjectConfigFile(); p != "" {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", p, err)
		}
	}
	explicit := strings.TrimSpace(os.Getenv("TADA_CONFIG"))
	if fv.configFile != "" {
		explicit = fv.configFile
	}
	if explicit != "" {
		if err := loadConfigFile(cfg, expandPath(explicit)); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", explicit, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := fv.apply(fs, cfg); err != nil {
		return nil, err
	}
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}
	return cfg, nil
}

// loadConfigFile loads TOML config from the given file.
func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	cfg.Files = append(cfg.Files, path)
	return nil
}

// loadFromEnv overrides config from TADA_* environment variables.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TADA_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("TADA_PREFIX"); v != "" {
		cfg.Prefix = v
	}
	if v := os.Getenv("TADA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TADA_TIMEOUT: %w", err)
		}
		cfg.Timeout = Duration{d}
	}
	if v := os.Getenv("TADA_STRICT"); v != "" {
		cfg.StrictResponses = boolFromString(v)
	}
	if v := os.Getenv("TADA_STATE_BACKEND"); v != "" {
		cfg.StateBackend = v
	}
	if v := os.Getenv("TADA_STATE"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("TADA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TADA_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("TADA_THEME"); v != "" {
		cfg.Theme = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.NoColor = true
	}
	return nil
}

type flagValues struct {
	configFile   string
	server       string
	prefix       string
	timeout      time.Duration
	strict       bool
	stateBackend string
	statePath    string
	logLevel     string
	logFile      string
	theme        string
	noColor      bool
}

func bindFlags(fs *flag.FlagSet) *flagValues {
	fv := &flagValues{}
	fs.StringVar(&fv.configFile, "config", "", "Path to a TOML config file")
	fs.StringVar(&fv.server, "server", "", "Backend base URL (default "+DefaultServer+")")
	fs.StringVar(&fv.prefix, "prefix", "", "Collection path, /api/todos or /todos")
	fs.DurationVar(&fv.timeout, "timeout", 0, "HTTP timeout")
	fs.BoolVar(&fv.strict, "strict", false, "Validate backend responses against the todo schema")
	fs.StringVar(&fv.stateBackend, "state-backend", "", "Client state backend: json or sqlite")
	fs.StringVar(&fv.statePath, "state", "", "Client state file")
	fs.StringVar(&fv.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&fv.logFile, "log-file", "", "Write logs to this file")
	fs.StringVar(&fv.theme, "theme", "", "Force light or dark theme for this run")
	fs.BoolVar(&fv.noColor, "no-color", false, "Disable colored output")
	return fv
}

// apply copies only the flags the user actually set.
func (fv *flagValues) apply(fs *flag.FlagSet, cfg *Config) error {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.Server = fv.server
		case "prefix":
			cfg.Prefix = fv.prefix
		case "timeout":
			cfg.Timeout = Duration{fv.timeout}
		case "strict":
			cfg.StrictResponses = fv.strict
		case "state-backend":
			cfg.StateBackend = fv.stateBackend
		case "state":
			cfg.StatePath = fv.statePath
		case "log-level":
			cfg.LogLevel = fv.logLevel
		case "log-file":
			cfg.LogFile = fv.logFile
		case "theme":
			cfg.Theme = fv.theme
		case "no-color":
			cfg.NoColor = fv.noColor
		}
	})
	return nil
}
