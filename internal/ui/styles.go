package ui

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
)

var (
	otpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true)
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)

	dimColor       = lipgloss.Color("240") // gray
	highlightColor = lipgloss.Color("#FF6B9D")

	// Rainbow gradient colors for focused borders (wraps back to start).
	rainbowBlend = []color.Color{
		lipgloss.Color("#FF6B9D"), // pink
		lipgloss.Color("#9B59B6"), // purple
		lipgloss.Color("#3498DB"), // blue
		lipgloss.Color("#2ECC71"), // green
		lipgloss.Color("#FF6B9D"), // pink (wrap)
	}
)

// applyBorderColor applies either the rainbow blend (focused) or dim border color.
func applyBorderColor(s lipgloss.Style, focused bool) lipgloss.Style {
	if focused {
		return s.BorderForegroundBlend(rainbowBlend...)
	}
	return s.BorderForeground(dimColor)
}

// truncateHeight limits s to at most maxLines lines.
func truncateHeight(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n")
}

// centerOffset returns the top-left position that centers a box of the
// given rendering inside a w x h area.
func centerOffset(box string, w, h int) (int, int) {
	x := (w - lipgloss.Width(box)) / 2
	y := (h - lipgloss.Height(box)) / 2
	return max(x, 0), max(y, 0)
}
