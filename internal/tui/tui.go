// Package tui is the interactive Bubble Tea front end over app.Controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Options wire the TUI to the rest of the client.
type Options struct {
	// KV persists the theme toggle. Nil keeps it for this run only.
	KV store.KV
	// Notices is the recorder the controller notifies into.
	Notices   *app.Recorder
	NoticeTTL time.Duration
	Logger    *log.Logger
	Input     io.Reader
	Output    io.Writer
	Now       func() time.Time
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeSearch
	modeConfirm
)

// Messages produced by commands.
type (
	opDoneMsg struct {
		op  string
		err error
	}
	noticeExpiredMsg struct{ seq int }
)

// pending is a bulk delete waiting for y/n.
type pending struct {
	prompt string
	run    func(ctx context.Context, c app.Confirmer) (app.BulkResult, error)
}

type Model struct {
	ctx  context.Context
	ctrl *app.Controller
	opt  Options
	keys keyMap

	styles *ui.Styles
	list   list.Model
	input  textinput.Model

	mode     mode
	editID   model.ID
	editText string
	inputErr string
	confirm  *pending

	notice    *app.Notice
	noticeSeq int

	width, height int
}

// New builds the model. Init loads the collection.
func New(ctx context.Context, ctrl *app.Controller, opt Options) Model {
	if opt.Notices == nil {
		opt.Notices = &app.Recorder{}
	}
	if opt.NoticeTTL <= 0 {
		opt.NoticeTTL = 3 * time.Second
	}
	if opt.Logger == nil {
		opt.Logger = log.New(io.Discard)
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}

	styles := ui.NewStyles(ui.Current())
	keys := newKeyMap()

	l := list.New(nil, itemDelegate{styles: &styles}, 80, 20)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("todo", "todos")
	l.DisableQuitKeybindings()
	// f and d are ours.
	l.KeyMap.NextPage.SetKeys("right", "l", "pgdown")
	l.KeyMap.PrevPage.SetKeys("left", "h", "pgup")
	l.AdditionalShortHelpKeys = keys.short
	l.AdditionalFullHelpKeys = keys.full

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := Model{
		ctx:    ctx,
		ctrl:   ctrl,
		opt:    opt,
		keys:   keys,
		styles: &styles,
		list:   l,
		input:  ti,
		width:  80,
		height: 24,
	}
	m.applyStyles()
	return m
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, ctrl *app.Controller, opt Options) error {
	progOpts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if opt.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opt.Input))
	}
	if opt.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opt.Output))
	}
	p := tea.NewProgram(New(ctx, ctrl, opt), progOpts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return m.run("load", m.ctrl.Load)
}

// run wraps a controller call as a command.
func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return opDoneMsg{op: op, err: fn(ctx)} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case opDoneMsg:
		return m.finish(msg)

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateEntry(msg)
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	if m.mode != modeList {
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// finish applies the result of a controller call: redraw rows and surface
// whatever the controller reported.
func (m Model) finish(msg opDoneMsg) (tea.Model, tea.Cmd) {
	m.refresh()
	var last *app.Notice
	if notes := m.opt.Notices.Drain(); len(notes) > 0 {
		last = &notes[len(notes)-1]
	}
	if last == nil && msg.err != nil {
		last = &app.Notice{Kind: app.NoticeError, Text: humanError(msg.err), At: m.opt.Now()}
	}
	if msg.err != nil {
		m.opt.Logger.Debug("tui op failed", "op", msg.op, "err", msg.err)
	}
	if last == nil {
		return m, nil
	}
	return m, m.show(*last)
}

func humanError(err error) string {
	switch {
	case errors.Is(err, app.ErrEmptyText):
		return "Text cannot be empty"
	case errors.Is(err, app.ErrNotFound):
		return "That todo no longer exists"
	}
	return err.Error()
}

// show replaces the status line and schedules its dismissal.
func (m *Model) show(n app.Notice) tea.Cmd {
	if n.At.IsZero() {
		n.At = m.opt.Now()
	}
	m.noticeSeq++
	m.notice = &n
	seq := m.noticeSeq
	return tea.Tick(m.opt.NoticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m *Model) info(text string) tea.Cmd {
	return m.show(app.Notice{Kind: app.NoticeInfo, Text: text})
}

func (m *Model) refresh() {
	v := m.ctrl.View()
	items := make([]list.Item, 0, len(v.Rows))
	for _, r := range v.Rows {
		items = append(items, listItem{row: r})
	}
	m.list.SetItems(items)
	m.list.Title = m.title(v)
}

func (m Model) title(v app.View) string {
	st, s := v.Stats, m.styles
	th := ui.Current()
	t := fmt.Sprintf("%s   %s %d  %s %d  %s %d  %s",
		s.Title.Render("Todos"),
		s.Success.Render(th.SymDone), st.Completed,
		s.Pending.Render(th.SymPending), st.Active,
		s.Accent.Render("Total"), st.Total,
		s.Muted.Render(ui.ProgressBar(st.Completed, st.Total, 12)),
	)
	if st.Overdue > 0 {
		t += "  " + s.Error.Render(fmt.Sprintf("overdue %d", st.Overdue))
	}
	if st.Selected > 0 {
		t += "  " + s.Accent.Render(fmt.Sprintf("selected %d", st.Selected))
	}
	if v.Filter != filter.All {
		t += "  " + s.Muted.Render("["+string(v.Filter)+"]")
	}
	if v.Query != "" {
		t += "  " + s.Muted.Render(fmt.Sprintf("/%s", v.Query))
	}
	return t
}

func (m *Model) applyStyles() {
	m.list.Styles.Title = m.styles.Title
	m.list.Styles.HelpStyle = m.styles.Help
	m.list.Styles.PaginationStyle = m.styles.Help
}

func (m *Model) resize() {
	h := m.height - 4
	if m.mode != modeList {
		h -= 3
	}
	if m.notice != nil {
		h--
	}
	m.list.SetSize(max(m.width-4, 20), max(h, 5))
}

func (m Model) current() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Todo{}, false
	}
	return it.row.Todo, true
}

// -------------- list mode --------------

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch k {
	case "q":
		return m, tea.Quit
	case "esc":
		if m.ctrl.Snapshot().Query != "" {
			m.ctrl.Search("")
			m.refresh()
			return m, nil
		}
		return m, tea.Quit

	case "a":
		m.mode = modeAdd
		m.inputErr = ""
		m.input.SetValue("")
		m.input.Placeholder = "Buy milk !high #groceries @tomorrow"
		m.resize()
		return m, m.input.Focus()

	case "e":
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.editID = t.ID
		m.editText = t.Text
		m.inputErr = ""
		m.input.SetValue(t.Text)
		m.input.CursorEnd()
		m.input.Placeholder = "Edit text, !priority, #category, @date"
		m.resize()
		return m, m.input.Focus()

	case " ":
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, m.run("toggle", func(ctx context.Context) error { return m.ctrl.ToggleComplete(ctx, t.ID) })

	case "d":
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, m.run("delete", func(ctx context.Context) error { return m.ctrl.Delete(ctx, t.ID) })

	case "p":
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		next := nextPriority(t.Priority)
		return m, m.run("priority", func(ctx context.Context) error {
			return m.ctrl.Update(ctx, t.ID, model.Patch{Priority: &next})
		})

	case "x":
		t, ok := m.current()
		if !ok {
			return m, nil
		}
		if _, err := m.ctrl.ToggleSelect(t.ID); err != nil {
			return m, m.show(app.Notice{Kind: app.NoticeError, Text: humanError(err)})
		}
		m.refresh()
		return m, nil

	case "A":
		v := m.ctrl.View()
		all := len(v.Rows) > 0
		for _, r := range v.Rows {
			all = all && r.Selected
		}
		if all {
			m.ctrl.ClearSelection()
		} else {
			m.ctrl.SelectAll()
		}
		m.refresh()
		return m, nil

	case "D":
		n := len(m.ctrl.Selected())
		if n == 0 {
			return m, m.info("Nothing selected")
		}
		m.ask(fmt.Sprintf("Delete %d selected todo(s)?", n), m.ctrl.DeleteSelected)
		return m, nil

	case "C":
		n := m.ctrl.View().Stats.Completed
		if n == 0 {
			return m, m.info("No completed todos")
		}
		m.ask(fmt.Sprintf("Delete %d completed todo(s)?", n), m.ctrl.ClearCompleted)
		return m, nil

	case "f":
		st := m.ctrl.CycleFilter()
		m.refresh()
		m.list.Select(0)
		return m, m.info("Filter: " + string(st))

	case "/":
		m.mode = modeSearch
		m.input.SetValue(m.ctrl.Snapshot().Query)
		m.input.CursorEnd()
		m.input.Placeholder = "Search text or category"
		m.resize()
		return m, m.input.Focus()

	case "t":
		next := ui.Toggle(ui.Current().Name)
		ui.SetTheme(next)
		*m.styles = ui.NewStyles(ui.Current())
		m.applyStyles()
		m.refresh()
		if m.opt.KV != nil {
			if err := ui.SaveTheme(m.opt.KV, next); err != nil {
				return m, m.show(app.Notice{Kind: app.NoticeError, Text: "Failed to save theme", Err: err})
			}
		}
		return m, m.info("Theme: " + next)

	case "r":
		return m, m.run("load", m.ctrl.Load)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func nextPriority(p model.Priority) model.Priority {
	switch p {
	case model.PriorityLow:
		return model.PriorityMedium
	case model.PriorityMedium:
		return model.PriorityHigh
	}
	return model.PriorityLow
}

func (m *Model) ask(prompt string, run func(context.Context, app.Confirmer) (app.BulkResult, error)) {
	m.mode = modeConfirm
	m.confirm = &pending{prompt: prompt, run: run}
}

// -------------- input modes --------------

func (m Model) leaveInput() Model {
	m.mode = modeList
	m.editText = ""
	m.inputErr = ""
	m.input.SetValue("")
	m.input.Blur()
	m.resize()
	return m
}

func (m Model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.leaveInput(), nil
	case "enter":
		var literal []string
		if m.mode == modeEdit {
			literal = strings.Fields(m.editText)
		}
		e, err := parseEntry(m.input.Value(), model.NewDate(m.opt.Now()), literal...)
		if err != nil {
			m.inputErr = err.Error()
			return m, nil
		}
		if m.mode == modeAdd {
			if strings.TrimSpace(e.Text) == "" {
				m.inputErr = "Text cannot be empty"
				return m, nil
			}
			in := e.newTodo()
			m = m.leaveInput()
			return m, m.run("add", func(ctx context.Context) error {
				_, err := m.ctrl.Add(ctx, in)
				return err
			})
		}
		p := e.patch()
		if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
			m.inputErr = "Text cannot be empty"
			return m, nil
		}
		if p.Text != nil && *p.Text == strings.Join(strings.Fields(m.editText), " ") {
			p.Text = nil
		}
		if p.Empty() {
			return m.leaveInput(), nil
		}
		id := m.editID
		m = m.leaveInput()
		return m, m.run("update", func(ctx context.Context) error { return m.ctrl.Update(ctx, id, p) })
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.inputErr = ""
	return m, cmd
}

// updateSearch filters as the user types; esc clears the query.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ctrl.Search("")
		m = m.leaveInput()
		m.refresh()
		return m, nil
	case "enter":
		m = m.leaveInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.Search(strings.TrimSpace(m.input.Value()))
	m.refresh()
	m.list.Select(0)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.confirm
	switch msg.String() {
	case "y", "Y", "enter":
		m.mode, m.confirm = modeList, nil
		return m, m.run("bulk delete", func(ctx context.Context) error {
			// The user already answered; skip the controller's own prompt.
			_, err := p.run(ctx, nil)
			return err
		})
	case "n", "N", "esc", "q":
		m.mode, m.confirm = modeList, nil
		return m, m.info("Cancelled")
	}
	return m, nil
}

// -------------- view --------------

func (m Model) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(m.list.View())

	switch m.mode {
	case modeAdd, modeEdit, modeSearch:
		title := map[mode]string{modeAdd: "Add todo", modeEdit: "Edit todo", modeSearch: "Search"}[m.mode]
		if m.inputErr != "" {
			title += "  " + s.Error.Render(m.inputErr)
		}
		b.WriteString("\n" + s.Input.Render(title+"\n"+m.input.View()))
	case modeConfirm:
		b.WriteString("\n" + s.Pending.Render(m.confirm.prompt+" (y/n)"))
	}

	if m.notice != nil {
		b.WriteString("\n" + m.noticeLine(*m.notice))
	}
	return s.Panel.Render(b.String())
}

func (m Model) noticeLine(n app.Notice) string {
	th, s := ui.Current(), m.styles
	switch n.Kind {
	case app.NoticeSuccess:
		return s.Success.Render(th.SymDone + " " + n.Message())
	case app.NoticeError:
		return s.Error.Render("✖ " + n.Message())
	}
	return s.Accent.Render(th.SymPending + " " + n.Message())
}
