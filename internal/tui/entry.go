package tui

import (
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

// entry is what the add/edit line parses into. Besides plain words it
// understands !high, #category and @2024-06-01 (or @today, @tomorrow).
// Tokens listed in literal are kept as words, once per listing, so text
// that already contains "#42" or "@bob" survives an edit.
type entry struct {
	Text     string
	Priority *model.Priority
	Category *string
	Due      *model.Date
}

func parseEntry(line string, today model.Date, literal ...string) (entry, error) {
	keep := map[string]int{}
	for _, tok := range literal {
		keep[tok]++
	}
	var e entry
	var words []string
	for _, tok := range strings.Fields(line) {
		if keep[tok] > 0 {
			keep[tok]--
			words = append(words, tok)
			continue
		}
		switch {
		case len(tok) > 1 && tok[0] == '!':
			if p, ok := shortPriority(tok[1:]); ok {
				e.Priority = &p
				continue
			}
		case len(tok) > 1 && tok[0] == '#':
			c := tok[1:]
			e.Category = &c
			continue
		case len(tok) > 1 && tok[0] == '@':
			d, err := relativeDate(tok[1:], today)
			if err != nil {
				return entry{}, err
			}
			e.Due = &d
			continue
		}
		words = append(words, tok)
	}
	e.Text = strings.Join(words, " ")
	return e, nil
}

func shortPriority(s string) (model.Priority, bool) {
	switch strings.ToLower(s) {
	case "l", "low":
		return model.PriorityLow, true
	case "m", "med", "medium":
		return model.PriorityMedium, true
	case "h", "high":
		return model.PriorityHigh, true
	}
	return "", false
}

func relativeDate(s string, today model.Date) (model.Date, error) {
	switch strings.ToLower(s) {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	}
	return model.ParseDate(s)
}

// newTodo turns an entry into a create request.
func (e entry) newTodo() model.NewTodo {
	in := model.NewTodo{Text: e.Text, DueDate: e.Due}
	if e.Priority != nil {
		in.Priority = *e.Priority
	}
	if e.Category != nil {
		in.Category = *e.Category
	}
	return in
}

// patch turns an entry into an update. Blank text leaves the text alone
// when some other field is set.
func (e entry) patch() model.Patch {
	p := model.Patch{Priority: e.Priority, Category: e.Category, DueDate: e.Due}
	if e.Text != "" || p.Empty() {
		text := e.Text
		p.Text = &text
	}
	return p
}
