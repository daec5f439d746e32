package watch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/api/apitest"
	"github.com/Makepad-fr/tada/internal/app"
)

var day = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func newWatcher(t *testing.T, now *time.Time, seed ...apitest.Record) (*Watcher, *apitest.Server, *app.Recorder) {
	t.Helper()
	srv := apitest.New(api.DefaultPrefix)
	t.Cleanup(srv.Close)
	for _, rec := range seed {
		rec["user"] = "u-1"
		srv.Seed(rec)
	}
	client, err := api.New(api.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	clock := func() time.Time { return *now }
	ctrl := app.New(client, "u-1", app.WithClock(clock))
	notes := &app.Recorder{}
	return New(ctrl, Options{Every: time.Second, Notifier: notes, Now: clock}), srv, notes
}

func TestCheckReportsOnce(t *testing.T) {
	now := day
	w, _, notes := newWatcher(t, &now,
		apitest.Record{"text": "Pay rent", "due_date": "2024-05-01"},
		apitest.Record{"text": "Dentist", "due_date": "2024-05-10"},
		apitest.Record{"text": "Later", "due_date": "2024-06-01"},
		apitest.Record{"text": "Done already", "due_date": "2024-05-01", "completed": true},
		apitest.Record{"text": "No date"},
	)
	ctx := context.Background()

	got, err := w.Check(ctx)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("reminders: got %d, want 2: %+v", len(got), got)
	}
	if !strings.HasPrefix(got[0].Text, "Overdue since 2024-05-01") || got[1].Text != "Due today: Dentist" {
		t.Errorf("texts: %q / %q", got[0].Text, got[1].Text)
	}
	if n := len(notes.Drain()); n != 2 {
		t.Errorf("notifier got %d notices", n)
	}

	again, _ := w.Check(ctx)
	if len(again) != 0 {
		t.Errorf("second check repeated reminders: %+v", again)
	}

	// Next day the due-today todo becomes overdue and is reported again.
	now = day.Add(24 * time.Hour)
	next, _ := w.Check(ctx)
	if len(next) != 1 || !strings.Contains(next[0].Text, "Dentist") {
		t.Errorf("after day change: %+v", next)
	}
}

func TestCheckLoadFailure(t *testing.T) {
	now := day
	w, srv, _ := newWatcher(t, &now)
	srv.FailNext("GET", api.DefaultPrefix, 500)
	if _, err := w.Check(context.Background()); err == nil {
		t.Error("expected load error")
	}
}

func TestDigest(t *testing.T) {
	now := day
	w, _, _ := newWatcher(t, &now,
		apitest.Record{"text": "a", "due_date": "2024-05-01"},
		apitest.Record{"text": "b", "completed": true},
	)
	if _, err := w.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := w.Digest().Text; got != "1 open, 1 overdue, 1 done" {
		t.Errorf("digest: %q", got)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	now := day
	w, srv, _ := newWatcher(t, &now, apitest.Record{"text": "x", "due_date": "2024-05-10"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(srv.Requests()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no initial reload")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	now := day
	w, _, _ := newWatcher(t, &now)
	w.opt.Every = 0
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected interval error")
	}
	w.opt.Every = time.Second
	w.opt.DailyAt = "25:00"
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected daily time error")
	}
}

func TestDailySpec(t *testing.T) {
	if got, err := dailySpec("08:30"); err != nil || got != "0 30 8 * * *" {
		t.Errorf("got %q, %v", got, err)
	}
	for _, bad := range []string{"8", "aa:10", "12:60"} {
		if _, err := dailySpec(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	s := NewScheduler(time.UTC)
	var mu sync.Mutex
	running, peak, runs := 0, 0, 0
	if _, err := s.Every(time.Second, func() {
		mu.Lock()
		running++
		runs++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(1500 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}
	s.Start()
	time.Sleep(3200 * time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if runs == 0 {
		t.Fatal("job never ran")
	}
	if peak != 1 {
		t.Errorf("overlapping runs: peak %d", peak)
	}
}
