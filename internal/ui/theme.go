package ui

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/store"
)

// Theme names.
const (
	ThemeLight   = "light"
	ThemeDark    = "dark"
	DefaultTheme = ThemeDark
)

// Theme bundles palette + symbols + box borders.
// ANSI fields feed the CLI printer, the lipgloss colors feed the TUI.
type Theme struct {
	Name string

	Title, Muted, Accent, Success, Error, Pending, High, Border string
	BoxUnchecked, BoxChecked, BoxSelected                       string
	CornerTL, CornerTR, CornerBL, CornerBR                      string
	H, V                                                        string
	SymDone, SymPending                                         string

	FgColor, MutedColor, AccentColor, SuccessColor lipgloss.Color
	ErrorColor, PendingColor, HighColor            lipgloss.Color
	BorderColor, SelectedBg                        lipgloss.Color
}

var (
	mu      sync.RWMutex
	current = dark()
)

func dark() Theme {
	return Theme{
		Name:  ThemeDark,
		Title: bold, Muted: "\033[90m", Accent: "\033[96m",
		Success: "\033[92m", Error: "\033[91m", Pending: "\033[93m", High: "\033[95m",
		Border:       "\033[90m",
		BoxUnchecked: "☐", BoxChecked: "☑", BoxSelected: "◆",
		CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
		H: "─", V: "│",
		SymDone: "✔", SymPending: "•",

		FgColor: "252", MutedColor: "244", AccentColor: "81", SuccessColor: "42",
		ErrorColor: "203", PendingColor: "214", HighColor: "213",
		BorderColor: "240", SelectedBg: "237",
	}
}

func light() Theme {
	return Theme{
		Name:  ThemeLight,
		Title: bold, Muted: dim, Accent: "\033[34m",
		Success: "\033[32m", Error: "\033[31m", Pending: "\033[33m", High: "\033[35m",
		Border:       dim,
		BoxUnchecked: "☐", BoxChecked: "☑", BoxSelected: "◆",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymDone: "✔", SymPending: "•",

		FgColor: "235", MutedColor: "243", AccentColor: "25", SuccessColor: "28",
		ErrorColor: "160", PendingColor: "130", HighColor: "127",
		BorderColor: "250", SelectedBg: "254",
	}
}

// ParseTheme accepts light or dark case-insensitively.
func ParseTheme(name string) (string, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case ThemeLight, ThemeDark:
		return n, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", name)
}

// SetTheme applies a theme globally. Unknown names fall back to the default.
func SetTheme(name string) {
	n, err := ParseTheme(name)
	if err != nil {
		n = DefaultTheme
	}
	t := dark()
	if n == ThemeLight {
		t = light()
	}
	mu.Lock()
	current = t
	mu.Unlock()
}

// Current exposes what renderers need.
func Current() Theme {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Toggle returns the other theme name.
func Toggle(name string) string {
	if name == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// LoadTheme reads the stored preference, falling back to the default for a
// missing or unrecognized value.
func LoadTheme(kv store.KV) (string, error) {
	v, err := kv.Get(store.KeyTheme)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DefaultTheme, nil
		}
		return DefaultTheme, fmt.Errorf("read theme: %w", err)
	}
	n, err := ParseTheme(v)
	if err != nil {
		return DefaultTheme, nil
	}
	return n, nil
}

// SaveTheme validates and persists a preference.
func SaveTheme(kv store.KV, name string) error {
	n, err := ParseTheme(name)
	if err != nil {
		return err
	}
	if err := kv.Set(store.KeyTheme, n); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
