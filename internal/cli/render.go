package cli

import (
	"fmt"
	"io"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

const maxTextWidth = 60

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `tada - a remote to-do client

Usage:
  tada [root flags] <subcommand> [flags] [args]

Subcommands:
  ls [--filter all|active|completed|high] [--search Q] [--group]
                     List todos; indexes are stable across filters
  add [--priority P] [--category C] [--due YYYY-MM-DD] <text...>
                     Add a todo (text can be multiple words)
  done <index>       Toggle completion of the todo at a 1-based index
  edit <index> [--text T] [--priority P] [--category C] [--due D | --no-due]
                     Change fields of a todo
  rm <index>         Delete the todo at a 1-based index
  rm-selected [--yes] <index...>
                     Delete several todos after confirmation
  clear-completed [--yes]
                     Delete every completed todo after confirmation
  theme [light|dark|toggle]
                     Show or change the stored theme
  whoami [--reset]   Show the user id requests are scoped to
  tui                Interactive board
  watch [--every 1m] [--digest-at HH:MM]
                     Reload periodically and remind about due todos
  help               Show this help

Root flags:
  --server URL  --prefix /api/todos|/todos  --config FILE  --timeout 10s
  --strict  --state-backend json|sqlite  --state FILE
  --theme light|dark  --log-level debug|info|warn|error  --log-file FILE
  --no-color

Examples:
  tada add --priority high --due 2024-06-01 "Pay rent"
  tada ls --filter active
  tada done 2
  tada rm-selected --yes 1 3
`)
}

// indexOf maps ids to their 1-based position in load order.
func indexOf(todos []model.Todo) map[model.ID]int {
	m := make(map[model.ID]int, len(todos))
	for i, t := range todos {
		m[t.ID] = i + 1
	}
	return m
}

func listLines(v app.View, index map[model.ID]int, group bool) []string {
	th := ui.Current()
	st := v.Stats
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(th.Title, "Todos"),
		ui.C(th.Success, th.SymDone), st.Completed,
		ui.C(th.Pending, th.SymPending), st.Active,
		ui.C(th.Accent, "Total"), st.Total,
	)
	if st.Overdue > 0 {
		header += "  " + ui.C(th.Error, fmt.Sprintf("overdue %d", st.Overdue))
	}

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(th.Muted, ui.ProgressBar(st.Completed, st.Total, 28)))
	if v.Filter != filter.All || v.Query != "" {
		lines = append(lines, ui.C(th.Muted, fmt.Sprintf("filter %s  search %q  showing %d", v.Filter, v.Query, len(v.Rows))))
	}
	lines = append(lines, "")

	if group {
		lines = append(lines, groupLines(v.Rows, index)...)
	} else {
		lines = append(lines, flatLines(v.Rows, index)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Muted, "Tip: add with `tada add \"Buy milk\"`"))
	return lines
}

func flatLines(rows []app.Row, index map[model.ID]int) []string {
	th := ui.Current()
	if len(rows) == 0 {
		return []string{ui.C(th.Muted, "no todos")}
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		t := r.Todo
		idx := fmt.Sprintf("%2d.", index[t.ID])
		box, color := th.BoxUnchecked, th.Muted
		if t.Completed {
			box, color = th.BoxChecked, th.Success
		}
		line := fmt.Sprintf("%s %s %s", ui.C(th.Muted, idx), ui.C(color, box), ui.Truncate(t.Text, maxTextWidth))
		line += "  " + priorityTag(t.Priority) + " " + ui.C(th.Muted, "#"+t.Category)
		switch {
		case r.Overdue:
			line += " " + ui.C(th.Error, "due "+t.DueDate.String()+" (overdue)")
		case r.DueToday:
			line += " " + ui.C(th.Pending, "due today")
		case t.HasDue():
			line += " " + ui.C(th.Muted, "due "+t.DueDate.String())
		}
		out = append(out, line)
	}
	return out
}

func priorityTag(p model.Priority) string {
	th := ui.Current()
	switch p {
	case model.PriorityHigh:
		return ui.C(th.High, "[high]")
	case model.PriorityLow:
		return ui.C(th.Muted, "[low]")
	}
	return ui.C(th.Accent, "[medium]")
}

func groupLines(rows []app.Row, index map[model.ID]int) []string {
	th := ui.Current()
	var pend, done []app.Row
	for _, r := range rows {
		if r.Todo.Completed {
			done = append(done, r)
		} else {
			pend = append(pend, r)
		}
	}
	var lines []string
	lines = append(lines, ui.C(th.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(th.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend, index)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(th.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done, index)...)
	}
	return lines
}
