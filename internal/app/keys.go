package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the dashboard.
type KeyMap struct {
	CheckIn  key.Binding
	CheckOut key.Binding
	Refresh  key.Binding
	Log      key.Binding
	Up       key.Binding
	Down     key.Binding
	Theme    key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		CheckIn: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "check in"),
		),
		CheckOut: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "check out"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Log: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "event log"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle theme"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp is the one-line key legend for role.
func (k KeyMap) ShortHelp(employee bool) []key.Binding {
	if employee {
		return []key.Binding{k.CheckIn, k.CheckOut, k.Refresh, k.Log, k.Theme, k.Quit}
	}
	return []key.Binding{k.Refresh, k.Log, k.Theme, k.Quit}
}
