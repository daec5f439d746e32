package app

import (
	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/model"
)

// Row is one rendered todo.
type Row struct {
	Todo     model.Todo
	Selected bool
	Overdue  bool
	DueToday bool
}

// Stats are computed over the whole collection, not the filtered view.
type Stats struct {
	Total     int
	Active    int
	Completed int
	High      int
	Overdue   int
	Selected  int
}

// Percent is the completed share, 0-100.
func (s Stats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

// View is what a front end draws.
type View struct {
	Rows   []Row
	Stats  Stats
	Filter filter.Status
	Query  string
}

// Project is a pure function of state and today's date.
func Project(st State, today model.Date) View {
	v := View{Filter: st.Filter, Query: st.Query}
	for _, t := range filter.Apply(st.Todos, st.Filter, st.Query) {
		v.Rows = append(v.Rows, Row{
			Todo:     t,
			Selected: st.Selected[t.ID],
			Overdue:  t.Overdue(today),
			DueToday: !t.Completed && t.DueOn(today),
		})
	}
	v.Stats = ComputeStats(st.Todos, st.Selected, today)
	return v
}

// ComputeStats counts the collection.
func ComputeStats(todos []model.Todo, selected map[model.ID]bool, today model.Date) Stats {
	var s Stats
	for _, t := range todos {
		s.Total++
		if t.Completed {
			s.Completed++
		} else {
			s.Active++
		}
		if t.Priority == model.PriorityHigh {
			s.High++
		}
		if t.Overdue(today) {
			s.Overdue++
		}
		if selected[t.ID] {
			s.Selected++
		}
	}
	return s
}
