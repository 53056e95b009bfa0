package ui

import "charm.land/lipgloss/v2"

// HelpModel renders a centered help overlay listing keyboard shortcuts.
type HelpModel struct {
	visible       bool
	width, height int
}

// NewHelpModel creates a hidden help model.
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// IsVisible reports whether the help overlay is showing.
func (h HelpModel) IsVisible() bool {
	return h.visible
}

// Toggle flips the help overlay visibility.
func (h HelpModel) Toggle() HelpModel {
	h.visible = !h.visible
	return h
}

func (h HelpModel) Hide() HelpModel {
	h.visible = false
	return h
}

// SetSize updates the terminal dimensions for centering.
func (h HelpModel) SetSize(w, ht int) HelpModel {
	h.width = w
	h.height = ht
	return h
}

const helpText = ` Keyboard Shortcuts

 General
   q / Ctrl+C    Quit
   h / F1        Toggle this help
   Tab           Switch pane
   Esc           Close overlay

 Feed
   r             Check the panel now
   c             Clear feed and seen ids
   d             Diagnostics
   j/k / ↑/↓     Navigate messages
   /             Filter messages

 Details
   j / k         Scroll down / up
   PgUp / PgDn   Page scroll

 Press h, F1, or Esc to close`

// View renders the help box (without full-screen placement).
func (h HelpModel) View() string {
	if !h.visible || h.width == 0 || h.height == 0 {
		return ""
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 3).
		BorderForegroundBlend(rainbowBlend...)

	return style.Render(helpText)
}
