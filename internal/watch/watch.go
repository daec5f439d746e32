// Package watch periodically reloads the collection and reminds about todos
// that are due today or overdue.
package watch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/model"
)

// Options tune a Watcher.
type Options struct {
	Every time.Duration
	// DailyAt (HH:MM) adds a once-a-day digest notice. Empty disables it.
	DailyAt  string
	Notifier app.Notifier
	Logger   *log.Logger
	Now      func() time.Time
}

// Watcher reports each due or overdue todo once per process.
type Watcher struct {
	ctrl *app.Controller
	opt  Options

	mu       sync.Mutex
	reported map[reminder]bool
}

// reminder keys what was reported. A todo that moves from due today to
// overdue, or whose due date changes, is reported again.
type reminder struct {
	id      model.ID
	due     string
	overdue bool
}

func New(ctrl *app.Controller, opt Options) *Watcher {
	if opt.Notifier == nil {
		opt.Notifier = app.NopNotifier{}
	}
	if opt.Logger == nil {
		opt.Logger = log.New(io.Discard)
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &Watcher{
		ctrl:     ctrl,
		opt:      opt,
		reported: map[reminder]bool{},
	}
}

// Check reloads once and emits reminders for todos not reported yet.
// It returns the reminders it emitted.
func (w *Watcher) Check(ctx context.Context) ([]app.Notice, error) {
	if err := w.ctrl.Load(ctx); err != nil {
		return nil, err
	}
	now := w.opt.Now()
	today := model.NewDate(now)

	w.mu.Lock()
	var out []app.Notice
	for _, t := range w.ctrl.Todos() {
		if t.Completed || !t.HasDue() {
			continue
		}
		var text string
		switch {
		case t.Overdue(today):
			text = fmt.Sprintf("Overdue since %s: %s", t.DueDate, t.Text)
		case t.DueOn(today):
			text = "Due today: " + t.Text
		default:
			continue
		}
		key := reminder{id: t.ID, due: t.DueDate.String(), overdue: t.Overdue(today)}
		if w.reported[key] {
			continue
		}
		w.reported[key] = true
		out = append(out, app.Notice{Kind: app.NoticeInfo, Text: text, At: now})
	}
	w.mu.Unlock()

	for _, n := range out {
		w.opt.Notifier.Notify(n)
	}
	w.opt.Logger.Debug("watch check", "todos", len(w.ctrl.Todos()), "reminders", len(out))
	return out, nil
}

// Digest emits one summary notice of open and overdue counts.
func (w *Watcher) Digest() app.Notice {
	now := w.opt.Now()
	s := app.ComputeStats(w.ctrl.Todos(), nil, model.NewDate(now))
	n := app.Notice{
		Kind: app.NoticeInfo,
		Text: fmt.Sprintf("%d open, %d overdue, %d done", s.Active, s.Overdue, s.Completed),
		At:   now,
	}
	w.opt.Notifier.Notify(n)
	return n
}

// Run checks immediately, then on every tick, until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if w.opt.Every < time.Second {
		return fmt.Errorf("watch interval %v: must be at least 1s", w.opt.Every)
	}
	sched := NewScheduler(time.Local)
	check := func() {
		if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
			w.opt.Logger.Warn("watch reload failed", "err", err)
		}
	}
	if _, err := sched.Every(w.opt.Every, check); err != nil {
		return fmt.Errorf("schedule reload: %w", err)
	}
	if w.opt.DailyAt != "" {
		if _, err := sched.Daily(w.opt.DailyAt, func() { w.Digest() }); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
	}

	check()
	sched.Start()
	w.opt.Logger.Info("watching", "every", w.opt.Every, "user", w.ctrl.User())
	<-ctx.Done()
	sched.Stop()
	return nil
}
