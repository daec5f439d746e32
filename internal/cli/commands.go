package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/identity"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
	"github.com/Makepad-fr/tada/internal/watch"
)

type command func(ctx context.Context, s *session, args []string) error

var commands map[string]command

func init() {
	commands = map[string]command{
		"ls":              doList,
		"add":             doAdd,
		"done":            doToggle,
		"edit":            doEdit,
		"rm":              doRemove,
		"rm-selected":     doRemoveSelected,
		"clear-completed": doClearCompleted,
		"theme":           doTheme,
		"whoami":          doWhoami,
		"tui":             doTUI,
		"watch":           doWatch,
	}
}

// subFlags returns a flag set whose parse errors surface as usage errors.
func subFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("tada "+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usagef("%s: %v", fs.Name(), err)
	}
	return nil
}

// loaded returns a controller with a fresh copy of the collection.
func loaded(ctx context.Context, s *session) (*app.Controller, error) {
	ctrl, err := s.controller()
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// pick resolves a 1-based index in load order.
func pick(ctrl *app.Controller, arg string) (model.Todo, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.Todo{}, usagef("not a number: %s", arg)
	}
	todos := ctrl.Todos()
	if n < 1 || n > len(todos) {
		return model.Todo{}, usagef("index out of range: have %d, got %d (run `tada ls` to see valid indexes)", len(todos), n)
	}
	return todos[n-1], nil
}

// -------------- subcommand impls ----------------

func doList(ctx context.Context, s *session, args []string) error {
	fs := subFlags("ls")
	status := fs.String("filter", "all", "all, active, completed or high")
	query := fs.String("search", "", "case-insensitive text or category match")
	group := fs.Bool("group", false, "group output by pending/done")
	if err := parse(fs, args); err != nil {
		return err
	}
	st, err := filter.Parse(*status)
	if err != nil {
		return usagef("ls: %v", err)
	}

	ctrl, err := loaded(ctx, s)
	if err != nil {
		return err
	}
	ctrl.SetFilter(st)
	ctrl.Search(strings.TrimSpace(*query))
	ui.Panel(s.env.Stdout, listLines(ctrl.View(), indexOf(ctrl.Todos()), *group))
	return nil
}

func doAdd(ctx context.Context, s *session, args []string) error {
	fs := subFlags("add")
	prio := fs.String("priority", string(model.PriorityMedium), "low, medium or high")
	cat := fs.String("category", model.DefaultCategory, "category label")
	due := fs.String("due", "", "due date, YYYY-MM-DD")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usagef("usage: tada add [--priority P] [--category C] [--due YYYY-MM-DD] <text...>")
	}
	p, err := model.ParsePriority(*prio)
	if err != nil {
		return usagef("add: %v", err)
	}
	in := model.NewTodo{Text: strings.Join(fs.Args(), " "), Priority: p, Category: *cat}
	if *due != "" {
		d, err := model.ParseDate(*due)
		if err != nil {
			return usagef("add: %v", err)
		}
		in.DueDate = &d
	}

	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	_, err = ctrl.Add(ctx, in)
	return err
}

func doToggle(ctx context.Context, s *session, args []string) error {
	if len(args) != 1 {
		return usagef("usage: tada done <index>")
	}
	ctrl, err := loaded(ctx, s)
	if err != nil {
		return err
	}
	t, err := pick(ctrl, args[0])
	if err != nil {
		return err
	}
	return ctrl.ToggleComplete(ctx, t.ID)
}

func doEdit(ctx context.Context, s *session, args []string) error {
	if len(args) == 0 {
		return usagef("usage: tada edit <index> [--text T] [--priority P] [--category C] [--due D|--no-due]")
	}
	index, rest := args[0], args[1:]
	fs := subFlags("edit")
	text := fs.String("text", "", "new text")
	prio := fs.String("priority", "", "low, medium or high")
	cat := fs.String("category", "", "category label")
	due := fs.String("due", "", "due date, YYYY-MM-DD")
	noDue := fs.Bool("no-due", false, "clear the due date")
	if err := parse(fs, rest); err != nil {
		return err
	}

	var p model.Patch
	var perr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "text":
			p.Text = text
		case "priority":
			v, err := model.ParsePriority(*prio)
			if err != nil {
				perr = err
				return
			}
			p.Priority = v.Ptr()
		case "category":
			c := strings.TrimSpace(*cat)
			p.Category = &c
		case "due":
			d, err := model.ParseDate(*due)
			if err != nil {
				perr = err
				return
			}
			p.DueDate = &d
		case "no-due":
			p.ClearDue = *noDue
		}
	})
	if perr != nil {
		return usagef("edit: %v", perr)
	}
	if p.DueDate != nil && p.ClearDue {
		return usagef("edit: --due and --no-due are exclusive")
	}
	if p.Empty() {
		return usagef("edit: nothing to change")
	}

	ctrl, err := loaded(ctx, s)
	if err != nil {
		return err
	}
	t, err := pick(ctrl, index)
	if err != nil {
		return err
	}
	return ctrl.Update(ctx, t.ID, p)
}

func doRemove(ctx context.Context, s *session, args []string) error {
	if len(args) != 1 {
		return usagef("usage: tada rm <index>")
	}
	ctrl, err := loaded(ctx, s)
	if err != nil {
		return err
	}
	t, err := pick(ctrl, args[0])
	if err != nil {
		return err
	}
	return ctrl.Delete(ctx, t.ID)
}

func doRemoveSelected(ctx context.Context, s *session, args []string) error {
	fs := subFlags("rm-selected")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usagef("usage: tada rm-selected [--yes] <index...>")
	}
	ctrl, err := loaded(ctx, s)
	if err != nil {
		return err
	}
	for _, arg := range fs.Args() {
		t, err := pick(ctrl, arg)
		if err != nil {
			return err
		}
		if !ctrl.IsSelected(t.ID) {
			if _, err := ctrl.ToggleSelect(t.ID); err != nil {
				return err
			}
		}
	}
	res, err := ctrl.DeleteSelected(ctx, s.confirm(*yes))
	return bulkOutcome(s, res, err)
}

func doClearCompleted(ctx context.Context, s *session, args []string) error {
	fs := subFlags("clear-completed")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}
	ctrl, err := loaded(ctx, s)
	if err != nil {
		return err
	}
	res, err := ctrl.ClearCompleted(ctx, s.confirm(*yes))
	return bulkOutcome(s, res, err)
}

func bulkOutcome(s *session, res app.BulkResult, err error) error {
	switch {
	case res.Matched == 0:
		ui.Info(s.env.Stdout, "nothing to delete")
	case res.Cancelled:
		ui.Info(s.env.Stdout, "cancelled")
	}
	if err != nil && res.Deleted < res.Matched {
		return fmt.Errorf("deleted %d of %d: %w", res.Deleted, res.Matched, err)
	}
	return err
}

func doTheme(_ context.Context, s *session, args []string) error {
	if len(args) > 1 {
		return usagef("usage: tada theme [light|dark|toggle]")
	}
	stored, err := ui.LoadTheme(s.kv)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintln(s.env.Stdout, stored)
		return nil
	}
	next := args[0]
	if strings.EqualFold(next, "toggle") {
		next = ui.Toggle(stored)
	}
	if _, err := ui.ParseTheme(next); err != nil {
		return usagef("theme: %v", err)
	}
	if err := ui.SaveTheme(s.kv, next); err != nil {
		return err
	}
	ui.SetTheme(next)
	ui.OK(s.env.Stdout, "theme: "+ui.Current().Name)
	return nil
}

func doWhoami(_ context.Context, s *session, args []string) error {
	fs := subFlags("whoami")
	reset := fs.Bool("reset", false, "forget the stored identity and generate a new one")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *reset {
		if err := identity.Reset(s.kv); err != nil {
			return err
		}
	}
	id, err := identity.Ensure(s.kv)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.env.Stdout, "%s\t(%s)\n", id.ID, id.Source)
	fmt.Fprintln(s.env.Stdout, ui.C(ui.Current().Muted, "server "+s.cfg.Server+s.cfg.Prefix))
	return nil
}

func doTUI(ctx context.Context, s *session, args []string) error {
	if len(args) != 0 {
		return usagef("usage: tada tui")
	}
	s.mu.Lock()
	s.quiet = true
	s.mu.Unlock()
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	return tui.Run(ctx, ctrl, tui.Options{
		KV:        s.kv,
		Notices:   s.notes,
		NoticeTTL: s.cfg.NoticeTTL.Duration,
		Logger:    s.log,
		Input:     s.env.Stdin,
		Output:    s.env.Stdout,
	})
}

func doWatch(ctx context.Context, s *session, args []string) error {
	fs := subFlags("watch")
	every := fs.Duration("every", s.cfg.WatchEvery.Duration, "reload interval")
	at := fs.String("digest-at", "", "daily summary time, HH:MM")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *every < time.Second {
		return usagef("watch: --every must be at least 1s")
	}
	ctrl, err := s.controller()
	if err != nil {
		return err
	}
	w := watch.New(ctrl, watch.Options{
		Every:    *every,
		DailyAt:  *at,
		Notifier: app.NotifierFunc(s.notify),
		Logger:   s.log,
	})
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
