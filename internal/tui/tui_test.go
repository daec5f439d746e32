package tui

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/api/apitest"
	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/ui"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	srv  *apitest.Server
	ctrl *app.Controller
	m    Model
}

func start(t *testing.T, opt Options, seed ...apitest.Record) *harness {
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
	notes := &app.Recorder{}
	clock := func() time.Time { return fixedNow }
	ctrl := app.New(client, "u-1", app.WithNotifier(notes), app.WithClock(clock))
	opt.Notices, opt.Now = notes, clock

	h := &harness{srv: srv, ctrl: ctrl, m: New(context.Background(), ctrl, opt)}
	h.do(t, h.m.Init())
	srv.ResetRequests()
	return h
}

func seed() []apitest.Record {
	return []apitest.Record{
		{"text": "Buy milk", "category": "groceries"},
		{"text": "Write report", "completed": true, "category": "work", "priority": "high"},
		{"text": "Call the bank", "category": "home"},
	}
}

// do runs an operation command and feeds its result back.
func (h *harness) do(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(opDoneMsg)
	if !ok {
		t.Fatalf("command did not produce opDoneMsg")
	}
	next, _ := h.m.Update(msg)
	h.m = next.(Model)
}

// press sends one key and returns the command, without running it.
func (h *harness) press(k tea.KeyMsg) tea.Cmd {
	next, cmd := h.m.Update(k)
	h.m = next.(Model)
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.press(runes(string(r)))
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestInitLoads(t *testing.T) {
	h := start(t, Options{}, seed()...)
	if n := len(h.m.list.Items()); n != 3 {
		t.Fatalf("items: got %d, want 3", n)
	}
	if !strings.Contains(h.m.View(), "Buy milk") {
		t.Error("view does not show the first todo")
	}
}

func TestQuickAdd(t *testing.T) {
	h := start(t, Options{})
	h.press(runes("a"))
	if h.m.mode != modeAdd {
		t.Fatalf("mode: got %v, want add", h.m.mode)
	}
	h.typeText("Call mom !high #family @tomorrow")
	h.do(t, h.press(enter))

	recs := h.srv.Records()
	if len(recs) != 1 {
		t.Fatalf("records: %d", len(recs))
	}
	r := recs[0]
	if r["text"] != "Call mom" || r["priority"] != "high" || r["category"] != "family" || r["due_date"] != "2024-05-11" {
		t.Errorf("created: %+v", r)
	}
	if h.m.mode != modeList || h.m.notice == nil || h.m.notice.Kind != app.NoticeSuccess {
		t.Errorf("after add: mode %v notice %+v", h.m.mode, h.m.notice)
	}
	if len(h.m.list.Items()) != 1 {
		t.Error("new todo not rendered")
	}
}

func TestBlankAddSendsNothing(t *testing.T) {
	h := start(t, Options{})
	h.press(runes("a"))
	h.typeText("   ")
	if cmd := h.press(enter); cmd != nil {
		t.Error("blank add produced a command")
	}
	if h.m.inputErr == "" || h.m.mode != modeAdd {
		t.Errorf("inputErr %q mode %v", h.m.inputErr, h.m.mode)
	}
	if n := len(h.srv.Requests()); n != 0 {
		t.Errorf("requests: %d", n)
	}
	h.press(esc)
	if h.m.mode != modeList {
		t.Error("esc did not leave add mode")
	}
}

func TestToggleAndPriority(t *testing.T) {
	h := start(t, Options{}, seed()...)
	h.do(t, h.press(runes(" ")))
	if got := h.srv.Records()[0]["completed"]; got != true {
		t.Errorf("completed: %v", got)
	}
	h.do(t, h.press(runes("p")))
	if got := h.srv.Records()[0]["priority"]; got != "high" {
		t.Errorf("priority after cycle from medium: %v", got)
	}
	reqs := h.srv.Requests()
	if len(reqs) != 2 || reqs[0].Method != http.MethodPut || reqs[0].Path != api.DefaultPrefix+"/1" {
		t.Errorf("requests: %+v", reqs)
	}
}

func TestEdit(t *testing.T) {
	h := start(t, Options{}, seed()...)
	h.press(down)
	h.press(runes("e"))
	if h.m.input.Value() != "Write report" {
		t.Fatalf("edit prefill: %q", h.m.input.Value())
	}
	h.typeText(" v2 #reports")
	h.do(t, h.press(enter))
	td, _ := h.ctrl.Get("2")
	if td.Text != "Write report v2" || td.Category != "reports" {
		t.Errorf("edited: %+v", td)
	}
}

func TestEditKeepsExistingShorthandText(t *testing.T) {
	h := start(t, Options{},
		apitest.Record{"text": "fix issue #42", "category": "work"},
		apitest.Record{"text": "email @bob", "category": "work"},
	)

	h.press(runes("e"))
	if cmd := h.press(enter); cmd != nil {
		t.Error("unchanged edit produced a command")
	}
	if h.m.mode != modeList {
		t.Errorf("mode: got %v, want list", h.m.mode)
	}
	if n := len(h.srv.Requests()); n != 0 {
		t.Errorf("unchanged edit sent %d requests", n)
	}
	if td, _ := h.ctrl.Get("1"); td.Text != "fix issue #42" || td.Category != "work" {
		t.Errorf("todo changed: %+v", td)
	}

	h.press(down)
	h.press(runes("e"))
	h.typeText(" asap")
	h.do(t, h.press(enter))
	reqs := h.srv.Requests()
	if len(reqs) != 1 || reqs[0].Body["text"] != "email @bob asap" {
		t.Fatalf("requests: %+v", reqs)
	}
	if _, ok := reqs[0].Body["category"]; ok {
		t.Errorf("category sent: %+v", reqs[0].Body)
	}
}

func TestDeleteSelectedConfirm(t *testing.T) {
	h := start(t, Options{}, seed()...)
	h.press(runes("x"))
	h.press(down)
	h.press(runes("x"))
	if got := h.ctrl.Selected(); len(got) != 2 {
		t.Fatalf("selected: %v", got)
	}

	h.press(runes("D"))
	if h.m.mode != modeConfirm || !strings.Contains(h.m.View(), "Delete 2 selected") {
		t.Fatalf("confirm prompt missing: mode %v", h.m.mode)
	}
	h.press(runes("n"))
	if n := len(h.srv.Requests()); n != 0 {
		t.Errorf("cancel still sent %d requests", n)
	}
	if h.m.notice == nil || h.m.notice.Text != "Cancelled" {
		t.Errorf("notice: %+v", h.m.notice)
	}

	h.press(runes("D"))
	h.do(t, h.press(runes("y")))
	if recs := h.srv.Records(); len(recs) != 1 || recs[0]["text"] != "Call the bank" {
		t.Errorf("remaining: %+v", recs)
	}
	if len(h.ctrl.Selected()) != 0 {
		t.Error("selection not cleared after delete")
	}
}

func TestBulkWithNothingToDo(t *testing.T) {
	h := start(t, Options{}, apitest.Record{"text": "open"})
	h.press(runes("C"))
	if h.m.mode != modeList || h.m.notice == nil || h.m.notice.Text != "No completed todos" {
		t.Errorf("mode %v notice %+v", h.m.mode, h.m.notice)
	}
	h.press(runes("D"))
	if h.m.notice.Text != "Nothing selected" {
		t.Errorf("notice %+v", h.m.notice)
	}
}

func TestSelectAllToggles(t *testing.T) {
	h := start(t, Options{}, seed()...)
	h.press(runes("A"))
	if n := len(h.ctrl.Selected()); n != 3 {
		t.Errorf("select all: %d", n)
	}
	h.press(runes("A"))
	if n := len(h.ctrl.Selected()); n != 0 {
		t.Errorf("second A should clear: %d", n)
	}
}

func TestFilterAndSearch(t *testing.T) {
	h := start(t, Options{}, seed()...)
	h.press(runes("f"))
	if v := h.ctrl.View(); v.Filter != filter.Active || len(h.m.list.Items()) != 2 {
		t.Errorf("active filter: %v, %d items", v.Filter, len(h.m.list.Items()))
	}
	h.press(runes("f"))
	h.press(runes("f"))
	h.press(runes("f"))
	if h.ctrl.View().Filter != filter.All {
		t.Error("filter did not cycle back to all")
	}

	h.press(runes("/"))
	h.typeText("BANK")
	if n := len(h.m.list.Items()); n != 1 {
		t.Errorf("search items: %d", n)
	}
	h.press(enter)
	if h.m.mode != modeList || h.ctrl.Snapshot().Query != "BANK" {
		t.Errorf("enter should keep the query")
	}
	h.press(esc)
	if h.ctrl.Snapshot().Query != "" || len(h.m.list.Items()) != 3 {
		t.Error("esc should clear the query")
	}
}

func TestFailedDeleteKeepsRow(t *testing.T) {
	h := start(t, Options{}, seed()...)
	h.srv.FailNext(http.MethodDelete, api.DefaultPrefix+"/1", http.StatusInternalServerError)
	h.do(t, h.press(runes("d")))
	if len(h.m.list.Items()) != 3 {
		t.Error("row removed despite failure")
	}
	if h.m.notice == nil || h.m.notice.Kind != app.NoticeError {
		t.Errorf("notice: %+v", h.m.notice)
	}
}

func TestNoticeExpires(t *testing.T) {
	h := start(t, Options{}, seed()...)
	h.press(runes("f"))
	if h.m.notice == nil {
		t.Fatal("no notice")
	}
	stale := h.m.noticeSeq
	h.press(runes("f"))
	next, _ := h.m.Update(noticeExpiredMsg{seq: stale})
	h.m = next.(Model)
	if h.m.notice == nil {
		t.Error("stale expiry cleared the newer notice")
	}
	next, _ = h.m.Update(noticeExpiredMsg{seq: h.m.noticeSeq})
	h.m = next.(Model)
	if h.m.notice != nil {
		t.Error("notice not dismissed")
	}
}

func TestThemeToggleIsStored(t *testing.T) {
	ui.SetTheme(ui.ThemeDark)
	defer ui.SetTheme(ui.DefaultTheme)
	kv, err := jsonstore.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	h := start(t, Options{KV: kv})
	h.press(runes("t"))
	if ui.Current().Name != ui.ThemeLight {
		t.Errorf("theme: %q", ui.Current().Name)
	}
	if v, _ := kv.Get(store.KeyTheme); v != ui.ThemeLight {
		t.Errorf("stored theme: %q", v)
	}
}

func TestParseEntry(t *testing.T) {
	today := model.NewDate(fixedNow)
	e, err := parseEntry("Pay rent !h #home @2024-06-01 now", today)
	if err != nil {
		t.Fatal(err)
	}
	if e.Text != "Pay rent now" || *e.Priority != model.PriorityHigh || *e.Category != "home" || e.Due.String() != "2024-06-01" {
		t.Errorf("entry: %+v", e)
	}
	e, _ = parseEntry("Shout !loud", today)
	if e.Text != "Shout !loud" || e.Priority != nil {
		t.Errorf("unknown priority token should stay text: %+v", e)
	}
	if _, err := parseEntry("x @someday", today); err == nil {
		t.Error("bad date accepted")
	}
	e, err = parseEntry("fix issue #42 !high", today, "fix", "issue", "#42")
	if err != nil || e.Text != "fix issue #42" || e.Category != nil || *e.Priority != model.PriorityHigh {
		t.Errorf("literal tokens: %+v, %v", e, err)
	}
	if p := (entry{Category: ptr("x")}).patch(); p.Text != nil {
		t.Errorf("field-only edit should not touch text: %+v", p)
	}
}

func ptr(s string) *string { return &s }
