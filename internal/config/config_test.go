// Package config tests configuration loading.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME and the working directory at fresh temp dirs and
// clears every TADA_* variable.
func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	work = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "TADA_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	t.Chdir(work)
	return home, work
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func load(t *testing.T, args ...string) *Config {
	t.Helper()
	fs := flag.NewFlagSet("tada", flag.ContinueOnError)
	cfg, err := Load(fs, args)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	home, _ := isolate(t)
	cfg := load(t)

	if cfg.Server != DefaultServer {
		t.Errorf("Server: got %q, want %q", cfg.Server, DefaultServer)
	}
	if cfg.Prefix != DefaultPrefix {
		t.Errorf("Prefix: got %q, want %q", cfg.Prefix, DefaultPrefix)
	}
	if cfg.Timeout.Duration != DefaultTimeout {
		t.Errorf("Timeout: got %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.StateBackend != BackendJSON {
		t.Errorf("StateBackend: got %q, want json", cfg.StateBackend)
	}
	if want := filepath.Join(home, ".tada", "state.json"); cfg.StatePath != want {
		t.Errorf("StatePath: got %q, want %q", cfg.StatePath, want)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if len(cfg.Files) != 0 {
		t.Errorf("Files: got %v, want none", cfg.Files)
	}
}

func TestLayering(t *testing.T) {
	home, work := isolate(t)
	writeFile(t, filepath.Join(home, ".tada", "config.toml"), `
server = "http://user.example:5000"
prefix = "/todos"
timeout = "3s"
log_level = "info"
`)
	writeFile(t, filepath.Join(work, "tada.toml"), `
server = "http://project.example"
state_backend = "sqlite"
`)

	cfg := load(t)
	if cfg.Server != "http://project.example" {
		t.Errorf("project file should override user file: got %q", cfg.Server)
	}
	if cfg.Prefix != "/todos" || cfg.Timeout.Duration != 3*time.Second || cfg.LogLevel != "info" {
		t.Errorf("user file values lost: %+v", cfg)
	}
	if want := filepath.Join(home, ".tada", "state.db"); cfg.StatePath != want {
		t.Errorf("sqlite StatePath: got %q, want %q", cfg.StatePath, want)
	}
	if len(cfg.Files) != 2 {
		t.Errorf("Files: got %v", cfg.Files)
	}

	t.Setenv("TADA_SERVER", "https://env.example")
	t.Setenv("TADA_TIMEOUT", "7s")
	cfg = load(t)
	if cfg.Server != "https://env.example" || cfg.Timeout.Duration != 7*time.Second {
		t.Errorf("env should override files: %q %v", cfg.Server, cfg.Timeout)
	}

	cfg = load(t, "--server", "http://flag.example/", "--log-level", "DEBUG", "ls", "--filter", "active")
	if cfg.Server != "http://flag.example" {
		t.Errorf("flag should override env: got %q", cfg.Server)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want debug", cfg.LogLevel)
	}
}

func TestPositionalArgsLeftForSubcommand(t *testing.T) {
	isolate(t)
	fs := flag.NewFlagSet("tada", flag.ContinueOnError)
	if _, err := Load(fs, []string{"--strict", "add", "Buy", "milk"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := strings.Join(fs.Args(), " ")
	if got != "add Buy milk" {
		t.Errorf("Args: got %q", got)
	}
}

func TestExplicitConfigFile(t *testing.T) {
	_, work := isolate(t)
	p := filepath.Join(work, "custom.toml")
	writeFile(t, p, `theme = "light"`+"\n"+`notice_ttl = "5s"`)
	cfg := load(t, "--config", p)
	if cfg.Theme != "light" || cfg.NoticeTTL.Duration != 5*time.Second {
		t.Errorf("explicit config not applied: %+v", cfg)
	}
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		file string
		args []string
	}{
		{"bad server", "", []string{"--server", "localhost:5000"}},
		{"bad prefix", "", []string{"--prefix", "api/todos"}},
		{"root prefix", "", []string{"--prefix", "/"}},
		{"root prefix in file", "prefix = \"//\"\n", nil},
		{"bad backend", "", []string{"--state-backend", "redis"}},
		{"bad level", "", []string{"--log-level", "loud"}},
		{"bad theme", "", []string{"--theme", "solarized"}},
		{"unknown key", `colour = "red"`, nil},
		{"bad duration", `timeout = "soon"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, work := isolate(t)
			if tt.file != "" {
				writeFile(t, filepath.Join(work, "tada.toml"), tt.file)
			}
			fs := flag.NewFlagSet("tada", flag.ContinueOnError)
			fs.SetOutput(new(strings.Builder))
			if _, err := Load(fs, tt.args); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := isolate(t)
	t.Setenv("TADA_STATE", "~/elsewhere/s.json")
	cfg := load(t)
	if want := filepath.Join(home, "elsewhere", "s.json"); cfg.StatePath != want {
		t.Errorf("StatePath: got %q, want %q", cfg.StatePath, want)
	}
}
