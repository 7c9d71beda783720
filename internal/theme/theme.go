// Package theme provides the Lip Gloss palettes and reusable styles for the
// timekeeper dashboard. It is a leaf package with no internal imports to
// avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Names of the built-in palettes. The choice is persisted with the session
// and survives logout.
const (
	Dark  = "dark"
	Light = "light"
)

// Palette is one complete set of UI colors.
type Palette struct {
	Name    string
	Border  lipgloss.Color
	Dimmed  lipgloss.Color
	Bright  lipgloss.Color
	Info    lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Danger  lipgloss.Color
}

var (
	darkPalette = Palette{
		Name:    Dark,
		Border:  lipgloss.Color("#4b5563"),
		Dimmed:  lipgloss.Color("#6b7280"),
		Bright:  lipgloss.Color("#f9fafb"),
		Info:    lipgloss.Color("#3b82f6"),
		Success: lipgloss.Color("#22c55e"),
		Warning: lipgloss.Color("#d97706"),
		Danger:  lipgloss.Color("#dc2626"),
	}
	lightPalette = Palette{
		Name:    Light,
		Border:  lipgloss.Color("#d1d5db"),
		Dimmed:  lipgloss.Color("#9ca3af"),
		Bright:  lipgloss.Color("#111827"),
		Info:    lipgloss.Color("#1d4ed8"),
		Success: lipgloss.Color("#15803d"),
		Warning: lipgloss.Color("#b45309"),
		Danger:  lipgloss.Color("#b91c1c"),
	}
)

// Valid reports whether name is a built-in palette.
func Valid(name string) bool {
	return name == Dark || name == Light
}

// Theme holds the styles derived from one palette.
type Theme struct {
	Palette

	Header   lipgloss.Style
	Dimmed   lipgloss.Style
	Panel    lipgloss.Style
	Selected lipgloss.Style
}

// New builds the theme for name. Unknown names fall back to dark.
func New(name string) Theme {
	p := darkPalette
	if name == Light {
		p = lightPalette
	}
	return Theme{
		Palette: p,
		Header:  lipgloss.NewStyle().Bold(true).Foreground(p.Bright),
		Dimmed:  lipgloss.NewStyle().Foreground(p.Dimmed),
		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(p.Bright),
	}
}

// LevelColor returns the color for an alert level.
func (t Theme) LevelColor(level string) lipgloss.Color {
	switch level {
	case "success":
		return t.Success
	case "warning":
		return t.Warning
	case "danger":
		return t.Danger
	default:
		return t.Info
	}
}

// Alert renders message as a toast for level.
func (t Theme) Alert(level, message string) string {
	c := t.LevelColor(level)
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(c).
		Foreground(c).
		PaddingLeft(1).
		Render(message)
}

// StatusColor returns the color for an attendance status.
func (t Theme) StatusColor(status string) lipgloss.Color {
	switch status {
	case "checked_in":
		return t.Success
	case "checked_out":
		return t.Info
	case "on_leave":
		return t.Warning
	default:
		return t.Palette.Dimmed
	}
}

// LeaveColor returns the color for a leave request state.
func (t Theme) LeaveColor(state string) lipgloss.Color {
	switch state {
	case "APPROVED":
		return t.Success
	case "REJECTED":
		return t.Danger
	case "CANCELLED":
		return t.Palette.Dimmed
	default:
		return t.Warning
	}
}

// StateGlyph returns a glyph for a realtime channel state name.
func StateGlyph(state string) string {
	switch state {
	case "open":
		return "●"
	case "connecting", "reconnecting":
		return "◌"
	case "exhausted":
		return "✗"
	default:
		return "○"
	}
}
