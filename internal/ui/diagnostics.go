package ui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"

	"github.com/danhigham/otpfeed/internal/domain"
)

// DiagnosticsModel is a scrollable overlay with counters and the debug log.
type DiagnosticsModel struct {
	viewport      viewport.Model
	visible       bool
	width, height int
	diag          domain.Diagnostics
}

func NewDiagnosticsModel() DiagnosticsModel {
	return DiagnosticsModel{viewport: viewport.New()}
}

func (d DiagnosticsModel) IsVisible() bool { return d.visible }

func (d DiagnosticsModel) Toggle() DiagnosticsModel {
	d.visible = !d.visible
	if d.visible {
		d.viewport.GotoTop()
	}
	return d
}

func (d DiagnosticsModel) Hide() DiagnosticsModel {
	d.visible = false
	return d
}

// SetSize sizes the overlay to most of the terminal.
func (d DiagnosticsModel) SetSize(w, h int) DiagnosticsModel {
	d.width = w
	d.height = h
	d.viewport.SetWidth(max(w*3/4-4, 20))
	d.viewport.SetHeight(max(h*3/4-4, 5))
	return d.render()
}

func (d DiagnosticsModel) SetDiagnostics(diag domain.Diagnostics) DiagnosticsModel {
	d.diag = diag
	return d.render()
}

func (d DiagnosticsModel) Update(msg tea.Msg) (DiagnosticsModel, tea.Cmd) {
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

func (d DiagnosticsModel) render() DiagnosticsModel {
	d.viewport.SetContent(formatDiagnostics(d.diag, d.viewport.Width()))
	return d
}

// formatDiagnostics lays out the diagnostics view as plain styled text.
func formatDiagnostics(diag domain.Diagnostics, width int) string {
	s := diag.Stats
	var b strings.Builder

	b.WriteString(headingStyle.Render("Scraper") + "\n")
	fmt.Fprintf(&b, "  status      %s\n", s.Status)
	fmt.Fprintf(&b, "  running     %t\n", s.Running)
	fmt.Fprintf(&b, "  uptime      %s\n", diag.Uptime)
	fmt.Fprintf(&b, "  last check  %s\n", s.LastCheck)
	fmt.Fprintf(&b, "  cycles      %s (%s failed)\n", humanize.Comma(int64(s.Cycles)), humanize.Comma(int64(s.Failures)))
	fmt.Fprintf(&b, "  total OTPs  %s\n", humanize.Comma(int64(s.TotalOTPs)))
	fmt.Fprintf(&b, "  feed        %d messages\n", diag.MessagesCount)
	fmt.Fprintf(&b, "  seen ids    %s\n", humanize.Comma(int64(diag.DedupSize)))
	if s.LastError != "" {
		fmt.Fprintf(&b, "  last error  %s\n", errorStyle.Render(s.LastError))
	}

	if s.APIResponse != "" {
		b.WriteString("\n" + headingStyle.Render("Last API response") + "\n")
		b.WriteString(lipgloss.NewStyle().Width(max(width, 1)).Render(s.APIResponse) + "\n")
	}

	b.WriteString("\n" + headingStyle.Render("Log") + "\n")
	if len(diag.Logs) == 0 {
		b.WriteString(missingStyle.Render("  empty") + "\n")
	}
	for _, line := range diag.Logs {
		b.WriteString(timeStyle.Render(line) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// View renders the overlay box, or "" when hidden.
func (d DiagnosticsModel) View() string {
	if !d.visible || d.width == 0 || d.height == 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForegroundBlend(rainbowBlend...).
		Render(d.viewport.View())
}
