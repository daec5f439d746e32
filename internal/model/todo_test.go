package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTodoDecodeNumericAndStringIDs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ID
	}{
		{"number", `{"id": 7, "text": "a"}`, "7"},
		{"string", `{"id": "f45a05b3", "text": "a"}`, "f45a05b3"},
		{"null", `{"id": null, "text": "a"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var td Todo
			if err := json.Unmarshal([]byte(tt.input), &td); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if td.ID != tt.want {
				t.Errorf("ID: got %q, want %q", td.ID, tt.want)
			}
		})
	}
}

func TestTodoDecodeReferenceBackendRecord(t *testing.T) {
	input := `{
		"id": 3,
		"text": "Buy milk",
		"completed": false,
		"priority": "high",
		"category": "home",
		"created_at": "2024-03-01T09:15:02.123456",
		"due_date": "2024-03-05"
	}`
	var td Todo
	if err := json.Unmarshal([]byte(input), &td); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	td.Normalize()
	if td.Priority != PriorityHigh {
		t.Errorf("Priority: got %q, want high", td.Priority)
	}
	if td.Category != "home" {
		t.Errorf("Category: got %q, want home", td.Category)
	}
	if !td.HasDue() || td.DueDate.String() != "2024-03-05" {
		t.Errorf("DueDate: got %v", td.DueDate)
	}
	if td.CreatedAt != "2024-03-01T09:15:02.123456" {
		t.Errorf("CreatedAt: got %q", td.CreatedAt)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	var td Todo
	if err := json.Unmarshal([]byte(`{"id":1,"text":"x","priority":"urgent","due_date":""}`), &td); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	td.Normalize()
	if td.Priority != PriorityMedium {
		t.Errorf("Priority: got %q, want medium", td.Priority)
	}
	if td.Category != DefaultCategory {
		t.Errorf("Category: got %q, want %q", td.Category, DefaultCategory)
	}
	if td.DueDate != nil {
		t.Errorf("DueDate: got %v, want nil", td.DueDate)
	}
}

func TestNewTodoWithDefaults(t *testing.T) {
	n := NewTodo{Text: "  call mom  ", Category: "  "}.WithDefaults()
	if n.Text != "call mom" {
		t.Errorf("Text: got %q", n.Text)
	}
	if n.Priority != PriorityMedium || n.Category != DefaultCategory {
		t.Errorf("defaults: got %q/%q", n.Priority, n.Category)
	}
	b, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"text":"call mom","priority":"medium","category":"general"}`
	if string(b) != want {
		t.Errorf("body: got %s, want %s", b, want)
	}
}

func TestPatchMarshal(t *testing.T) {
	done := true
	due, _ := ParseDate("2030-01-02")
	tests := []struct {
		name  string
		patch Patch
		want  string
	}{
		{"completed only", Patch{Completed: &done}, `{"completed":true}`},
		{"due date", Patch{DueDate: &due}, `{"due_date":"2030-01-02"}`},
		{"clear due", Patch{ClearDue: true}, `{"due_date":null}`},
		{"priority", Patch{Priority: PriorityLow.Ptr()}, `{"priority":"low"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.patch)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestPatchApplyTouchesOnlySetFields(t *testing.T) {
	due, _ := ParseDate("2030-01-02")
	td := Todo{ID: "1", Text: "a", Priority: PriorityHigh, Category: "work", DueDate: &due}
	done := true
	Patch{Completed: &done}.Apply(&td)
	if !td.Completed || td.Text != "a" || td.Priority != PriorityHigh || td.Category != "work" || !td.HasDue() {
		t.Errorf("unexpected todo after patch: %+v", td)
	}
	Patch{ClearDue: true}.Apply(&td)
	if td.HasDue() {
		t.Errorf("due date not cleared")
	}
}

func TestOverdueAndDueOn(t *testing.T) {
	today := NewDate(time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC))
	yesterday := today.AddDays(-1)
	tests := []struct {
		name        string
		todo        Todo
		wantOverdue bool
		wantToday   bool
	}{
		{"no due", Todo{}, false, false},
		{"past open", Todo{DueDate: &yesterday}, true, false},
		{"past done", Todo{DueDate: &yesterday, Completed: true}, false, false},
		{"today", Todo{DueDate: &today}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.todo.Overdue(today); got != tt.wantOverdue {
				t.Errorf("Overdue: got %v, want %v", got, tt.wantOverdue)
			}
			if got := tt.todo.DueOn(today); got != tt.wantToday {
				t.Errorf("DueOn: got %v, want %v", got, tt.wantToday)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	if p, err := ParsePriority("HIGH"); err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority(HIGH): got %q, %v", p, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("ParsePriority(urgent): expected error")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29T23:00:00Z")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("got %q", d.String())
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if d, err := ParseDate(""); err != nil || !d.IsZero() {
		t.Errorf("empty: got %v, %v", d, err)
	}
}
