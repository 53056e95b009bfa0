package ui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/danhigham/otpfeed/internal/domain"
)

const splashArt = `
       _         __               _
  ___ | |_ _ __ / _| ___  ___  __| |
 / _ \| __| '_ \ |_ / _ \/ _ \/ _` + "`" + ` |
| (_) | |_| |_) |  _|  __/  __/ (_| |
 \___/ \__| .__/|_|  \___|\___|\__,_|
          |_|
`

// SplashModel is the startup overlay. It shows the session status until the
// first poll cycle completes and the minimum display time has passed.
type SplashModel struct {
	visible   bool
	minShown  bool
	firstDone bool
	status    string
	lastError string

	width, height int
}

func NewSplashModel() SplashModel {
	return SplashModel{visible: true, status: "Connecting to panel..."}
}

func (s SplashModel) SetSize(w, h int) SplashModel {
	s.width = w
	s.height = h
	return s
}

func (s SplashModel) IsVisible() bool {
	return s.visible
}

// TimerDone marks the minimum display duration as elapsed.
func (s SplashModel) TimerDone() SplashModel {
	s.minShown = true
	s.visible = s.visible && !s.firstDone
	return s
}

// SetCounters mirrors the store's session status. A completed cycle, failed
// or not, lets the splash close.
func (s SplashModel) SetCounters(c domain.Counters) SplashModel {
	if c.Status != "" {
		s.status = c.Status
	}
	s.lastError = c.LastError
	if c.Cycles > 0 {
		s.firstDone = true
		s.visible = s.visible && !s.minShown
	}
	return s
}

func (s SplashModel) Dismiss() SplashModel {
	s.visible = false
	return s
}

func (s SplashModel) View() string {
	if !s.visible || s.width == 0 || s.height == 0 {
		return ""
	}

	lines := []string{strings.Trim(splashArt, "\n"), "", headingStyle.Render(s.status)}
	if s.lastError != "" {
		lines = append(lines, errorStyle.Render(truncateWidth(s.lastError, 40)))
	}
	if !s.firstDone {
		lines = append(lines, timeStyle.Render("waiting for first check"))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlightColor).
		Padding(1, 3).
		Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func truncateWidth(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
