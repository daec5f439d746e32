package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultCategory is used when a todo is created or received without one.
const DefaultCategory = "general"

// ID is the backend-assigned identifier. Backends send either numbers or
// strings; both are held as text.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Todo is the only entity the backend serves.
type Todo struct {
	ID        ID       `json:"id"`
	Text      string   `json:"text"`
	Completed bool     `json:"completed"`
	Priority  Priority `json:"priority,omitempty"`
	Category  string   `json:"category,omitempty"`
	DueDate   *Date    `json:"due_date,omitempty"`
	User      string   `json:"user,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"` // backend-formatted, kept verbatim
}

// Normalize fills the defaults a backend may leave out.
func (t *Todo) Normalize() {
	t.Priority = ParsePriorityOr(string(t.Priority), PriorityMedium)
	if strings.TrimSpace(t.Category) == "" {
		t.Category = DefaultCategory
	}
	if t.DueDate != nil && t.DueDate.IsZero() {
		t.DueDate = nil
	}
}

// HasDue reports whether the todo carries a due date.
func (t Todo) HasDue() bool { return t.DueDate != nil && !t.DueDate.IsZero() }

// Overdue: due strictly before today and still open.
func (t Todo) Overdue(today Date) bool {
	return !t.Completed && t.HasDue() && t.DueDate.Before(today)
}

// DueOn reports whether the todo is due on the given day.
func (t Todo) DueOn(day Date) bool {
	return t.HasDue() && t.DueDate.Equal(day)
}

// NewTodo is the create request body.
type NewTodo struct {
	Text     string   `json:"text"`
	User     string   `json:"user,omitempty"`
	Priority Priority `json:"priority"`
	Category string   `json:"category"`
	DueDate  *Date    `json:"due_date,omitempty"`
}

// WithDefaults trims the text and applies the create defaults.
func (n NewTodo) WithDefaults() NewTodo {
	n.Text = strings.TrimSpace(n.Text)
	n.Priority = ParsePriorityOr(string(n.Priority), PriorityMedium)
	n.Category = strings.TrimSpace(n.Category)
	if n.Category == "" {
		n.Category = DefaultCategory
	}
	if n.DueDate != nil && n.DueDate.IsZero() {
		n.DueDate = nil
	}
	return n
}

// Patch is a partial update. Nil fields are left out of the request.
type Patch struct {
	Text      *string
	Completed *bool
	Priority  *Priority
	Category  *string
	DueDate   *Date
	ClearDue  bool // sends "due_date": null
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.Text == nil && p.Completed == nil && p.Priority == nil &&
		p.Category == nil && p.DueDate == nil && !p.ClearDue
}

func (p Patch) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if p.Text != nil {
		m["text"] = *p.Text
	}
	if p.Completed != nil {
		m["completed"] = *p.Completed
	}
	if p.Priority != nil {
		m["priority"] = *p.Priority
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	switch {
	case p.ClearDue:
		m["due_date"] = nil
	case p.DueDate != nil:
		m["due_date"] = *p.DueDate
	}
	return json.Marshal(m)
}

// Apply mirrors the patch onto a local copy.
func (p Patch) Apply(t *Todo) {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	switch {
	case p.ClearDue:
		t.DueDate = nil
	case p.DueDate != nil:
		d := *p.DueDate
		t.DueDate = &d
	}
}
