package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/identity"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/sqlstore"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Env is the process surface the runner writes to. Zero fields fall back to
// the os equivalents.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	// HTTPClient overrides the client built from config.
	HTTPClient *http.Client
}

func (e Env) withDefaults() Env {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Stdin == nil {
		e.Stdin = os.Stdin
	}
	return e
}

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks errors that should exit with ExitUsage.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error { return usageError{fmt.Sprintf(format, a...)} }

// Run parses root flags, dispatches subcommands and returns an exit code
// (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, env Env) int {
	env = env.withDefaults()

	fs := flag.NewFlagSet("tada", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { PrintHelp(env.Stderr) }
	cfg, err := config.Load(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		ui.Fail(env.Stderr, "config: "+err.Error())
		return ExitUsage
	}
	ui.SetColorForcing(false, cfg.NoColor)

	rest := fs.Args()
	if len(rest) == 0 {
		PrintHelp(env.Stderr)
		return ExitUsage
	}
	cmd, a := rest[0], rest[1:]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		PrintHelp(env.Stdout)
		return ExitOK
	}
	run, ok := commands[cmd]
	if !ok {
		ui.Fail(env.Stderr, "unknown subcommand: "+cmd)
		fmt.Fprintln(env.Stderr)
		PrintHelp(env.Stderr)
		return ExitUsage
	}

	s, err := openSession(cfg, env)
	if err != nil {
		ui.Fail(env.Stderr, err.Error())
		return ExitError
	}
	defer s.close()

	return s.exit(run(ctx, s, a))
}

// session is the per-invocation wiring shared by every subcommand.
type session struct {
	cfg *config.Config
	env Env
	log *log.Logger
	kv  store.KV

	closers []io.Closer

	once sync.Once
	ctrl *app.Controller
	err  error

	// quiet suppresses the printing notifier, for front ends that show
	// notices themselves.
	quiet bool
	notes *app.Recorder
	in    *bufio.Reader

	// mu guards shown and output; watch notifies from cron goroutines.
	mu    sync.Mutex
	shown bool
}

func openSession(cfg *config.Config, env Env) (*session, error) {
	s := &session{cfg: cfg, env: env, notes: &app.Recorder{}}

	opts := logging.DefaultOptions()
	opts.Level = cfg.LogLevel
	if cfg.LogFile != "" {
		l, c, err := logging.OpenFile(cfg.LogFile, opts)
		if err != nil {
			return nil, err
		}
		s.log = l
		s.closers = append(s.closers, c)
	} else {
		l, err := logging.New(env.Stderr, opts)
		if err != nil {
			return nil, err
		}
		s.log = l
	}

	kv, err := openStore(cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	s.kv = kv
	s.closers = append(s.closers, kv)

	theme := cfg.Theme
	if theme == "" {
		if theme, err = ui.LoadTheme(kv); err != nil {
			s.log.Warn("theme preference unreadable", "err", err)
		}
	}
	ui.SetTheme(theme)
	s.log.Debug("session open", "server", cfg.Server, "prefix", cfg.Prefix, "state", cfg.StatePath, "files", cfg.Files)
	return s, nil
}

func openStore(cfg *config.Config) (store.KV, error) {
	switch cfg.StateBackend {
	case config.BackendSQLite:
		kv, err := sqlstore.Open(cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("open state %s: %w", cfg.StatePath, err)
		}
		return kv, nil
	default:
		kv, err := jsonstore.Open(cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("open state %s: %w", cfg.StatePath, err)
		}
		return kv, nil
	}
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.log.Warn("close", "err", err)
		}
	}
	s.closers = nil
}

// controller resolves the identity and builds the API client lazily, so
// commands that only touch local state never need a reachable server.
func (s *session) controller() (*app.Controller, error) {
	s.once.Do(func() {
		id, err := identity.Ensure(s.kv)
		if err != nil {
			s.err = err
			return
		}
		s.log.Debug("identity", "user", id.ID, "source", id.Source)

		client, err := api.New(api.Options{
			BaseURL:    s.cfg.Server,
			Prefix:     s.cfg.Prefix,
			Timeout:    s.cfg.Timeout.Duration,
			Strict:     s.cfg.StrictResponses,
			HTTPClient: s.env.HTTPClient,
			Logger:     s.log,
		})
		if err != nil {
			s.err = err
			return
		}
		s.ctrl = app.New(client, id.ID,
			app.WithLogger(s.log),
			app.WithNotifier(app.NotifierFunc(s.notify)),
		)
	})
	return s.ctrl, s.err
}

// notify prints controller notices unless a front end owns the screen.
func (s *session) notify(n app.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiet {
		s.notes.Notify(n)
		return
	}
	switch n.Kind {
	case app.NoticeSuccess:
		ui.OK(s.env.Stdout, n.Message())
	case app.NoticeError:
		s.shown = true
		ui.Fail(s.env.Stderr, n.Message())
	default:
		ui.Info(s.env.Stdout, n.Message())
	}
}

// exit maps an error to an exit code. Errors the notifier already showed
// are not printed twice.
func (s *session) exit(err error) int {
	if err == nil {
		return ExitOK
	}
	var ue usageError
	switch {
	case errors.As(err, &ue):
		ui.Fail(s.env.Stderr, ue.msg)
		return ExitUsage
	case errors.Is(err, app.ErrEmptyText):
		ui.Fail(s.env.Stderr, err.Error())
		return ExitUsage
	case s.reported():
		return ExitError
	}
	ui.Fail(s.env.Stderr, err.Error())
	return ExitError
}

func (s *session) reported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

// confirm prompts on stderr and reads y/yes from stdin.
func (s *session) confirm(yes bool) app.Confirmer {
	if yes {
		return nil
	}
	return app.ConfirmFunc(func(prompt string) bool {
		if s.in == nil {
			s.in = bufio.NewReader(s.env.Stdin)
		}
		fmt.Fprint(s.env.Stderr, ui.C(ui.Current().Pending, prompt+" [y/N] "))
		line, _ := s.in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}
