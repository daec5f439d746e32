package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Add, Edit, Toggle, Delete, Priority key.Binding
	Select, SelectAll, DeleteSelected   key.Binding
	ClearCompleted, Filter, Search      key.Binding
	Theme, Reload, Quit                 key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Add:            key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:           key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Toggle:         key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done")),
		Delete:         key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Priority:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
		Select:         key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "select")),
		SelectAll:      key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "select all")),
		DeleteSelected: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete selected")),
		ClearCompleted: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear completed")),
		Filter:         key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Search:         key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Theme:          key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Reload:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:           key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) short() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Delete, k.Select, k.Filter, k.Search}
}

func (k keyMap) full() []key.Binding {
	return []key.Binding{
		k.Add, k.Edit, k.Toggle, k.Delete, k.Priority,
		k.Select, k.SelectAll, k.DeleteSelected, k.ClearCompleted,
		k.Filter, k.Search, k.Theme, k.Reload,
	}
}
