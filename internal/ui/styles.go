package ui

import "github.com/charmbracelet/lipgloss"

// Styles are the Lip Gloss styles of a theme.
type Styles struct {
	Title    lipgloss.Style
	Success  lipgloss.Style
	Pending  lipgloss.Style
	Accent   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	High     lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Done     lipgloss.Style
	Help     lipgloss.Style
	Panel    lipgloss.Style
	Input    lipgloss.Style
}

// NewStyles derives styles from t.
func NewStyles(t Theme) Styles {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderColor).
		Padding(0, 1)
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(t.FgColor),
		Success:  lipgloss.NewStyle().Foreground(t.SuccessColor),
		Pending:  lipgloss.NewStyle().Foreground(t.PendingColor),
		Accent:   lipgloss.NewStyle().Foreground(t.AccentColor),
		Muted:    lipgloss.NewStyle().Foreground(t.MutedColor),
		Error:    lipgloss.NewStyle().Foreground(t.ErrorColor).Bold(true),
		High:     lipgloss.NewStyle().Foreground(t.HighColor).Bold(true),
		Cursor:   lipgloss.NewStyle().Bold(true).Foreground(t.AccentColor),
		Selected: lipgloss.NewStyle().Background(t.SelectedBg),
		Done:     lipgloss.NewStyle().Foreground(t.MutedColor).Strikethrough(true),
		Help:     lipgloss.NewStyle().Foreground(t.MutedColor),
		Panel:    border,
		Input:    border,
	}
}
