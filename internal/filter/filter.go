// Package filter projects a todo collection through a status filter and a
// text search. Everything here is pure.
package filter

import (
	"fmt"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

// Status selects records by completion or priority.
type Status string

const (
	All       Status = "all"
	Active    Status = "active"
	Completed Status = "completed"
	High      Status = "high"
)

// Statuses in cycling order.
var Statuses = []Status{All, Active, Completed, High}

// Parse accepts a status name case-insensitively. Empty means All.
func Parse(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return All, nil
	case All, Active, Completed, High:
		return st, nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, active, completed or high)", s)
}

// Next returns the status after s in cycling order.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return All
}

// Match reports whether t passes the status filter.
func (s Status) Match(t model.Todo) bool {
	switch s {
	case Active:
		return !t.Completed
	case Completed:
		return t.Completed
	case High:
		return t.Priority == model.PriorityHigh
	}
	return true
}

// MatchQuery is a case-insensitive substring match on text and category.
// A blank query matches everything.
func MatchQuery(t model.Todo, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Text), q) ||
		strings.Contains(strings.ToLower(t.Category), q)
}

// Apply filters by status, then by query, keeping collection order.
func Apply(todos []model.Todo, status Status, query string) []model.Todo {
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if status.Match(t) && MatchQuery(t, query) {
			out = append(out, t)
		}
	}
	return out
}
