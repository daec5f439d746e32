package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

// listItem adapts a projected row to bubbles/list.Item.
type listItem struct {
	row app.Row
}

func (i listItem) Title() string       { return i.row.Todo.Text }
func (i listItem) Description() string { return i.row.Todo.Category }
func (i listItem) FilterValue() string { return i.row.Todo.Text }

// itemDelegate renders one todo per line.
type itemDelegate struct {
	styles *ui.Styles
}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	th, st := ui.Current(), d.styles
	t := it.row.Todo

	prefix := "  "
	if index == m.Index() {
		prefix = st.Cursor.Render("> ")
	}
	mark := " "
	if it.row.Selected {
		mark = st.Accent.Render(th.BoxSelected)
	}
	box := st.Muted.Render(th.BoxUnchecked)
	text := ui.Truncate(t.Text, max(m.Width()-30, 10))
	if t.Completed {
		box = st.Success.Render(th.BoxChecked)
		text = st.Done.Render(text)
	}

	var meta []string
	switch t.Priority {
	case model.PriorityHigh:
		meta = append(meta, st.High.Render("!high"))
	case model.PriorityLow:
		meta = append(meta, st.Muted.Render("!low"))
	}
	meta = append(meta, st.Muted.Render("#"+t.Category))
	switch {
	case it.row.Overdue:
		meta = append(meta, st.Error.Render("overdue "+t.DueDate.String()))
	case it.row.DueToday:
		meta = append(meta, st.Pending.Render("due today"))
	case t.HasDue():
		meta = append(meta, st.Muted.Render("@"+t.DueDate.String()))
	}

	line := fmt.Sprintf("%s%s %s %s  %s", prefix, mark, box, text, strings.Join(meta, " "))
	if it.row.Selected {
		line = st.Selected.Render(line)
	}
	fmt.Fprint(w, line)
}
