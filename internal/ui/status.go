package ui

import (
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"

	"github.com/danhigham/otpfeed/internal/domain"
)

var (
	// Dark gray background matching the lipgloss example
	statusBarBg = lipgloss.Color("#353533")
	// Bright magenta for the status pill and time highlight
	statusPillBg    = lipgloss.Color("#FF5FAF")
	statusPillBgOff = lipgloss.Color("#6C5098")
	statusTimeBg    = lipgloss.Color("#6124DF")
	statusCountBg   = lipgloss.Color("#7B5EA7")
)

type statusModel struct {
	counters domain.Counters
	notice   string
	width    int
	now      func() time.Time
}

func newStatusModel() statusModel {
	return statusModel{
		counters: domain.Counters{Status: "Connecting...", LastCheck: "Never"},
		now:      time.Now,
	}
}

// SetWidth sets the full terminal width for the status bar.
func (m statusModel) SetWidth(w int) statusModel {
	m.width = w
	return m
}

func (m statusModel) SetCounters(c domain.Counters) statusModel {
	m.counters = c
	return m
}

// SetNotice shows a short message next to the status pill.
func (m statusModel) SetNotice(s string) statusModel {
	m.notice = s
	return m
}

func (m statusModel) connected() bool {
	return strings.HasPrefix(m.counters.Status, "✅")
}

// View renders a full-width status bar:
// [STATUS pill] [notice or error] ... [OTP count pill] [last check] [time pill]
func (m statusModel) View() string {
	pillBg := statusPillBgOff
	if m.connected() {
		pillBg = statusPillBg
	}
	pill := lipgloss.NewStyle().
		Background(pillBg).
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true).
		Padding(0, 1).
		Render(strings.ToUpper(m.counters.Status))

	middle := m.notice
	middleStyle := lipgloss.NewStyle().
		Background(statusBarBg).
		Foreground(lipgloss.Color("#FFFFFF")).
		Padding(0, 1)
	if middle == "" && m.counters.LastError != "" {
		middle = m.counters.LastError
		middleStyle = middleStyle.Foreground(lipgloss.Color("#FF5F5F"))
	}
	left := pill + middleStyle.Render(middle)

	count := lipgloss.NewStyle().
		Background(statusCountBg).
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true).
		Padding(0, 1).
		Render(humanize.Comma(int64(m.counters.TotalOTPs)) + " OTPs")

	check := lipgloss.NewStyle().
		Background(statusBarBg).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1).
		Render("checked " + m.counters.LastCheck)

	timePill := lipgloss.NewStyle().
		Background(statusTimeBg).
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true).
		Padding(0, 1).
		Render(m.now().Format("15:04"))

	right := count + check + timePill

	// Drop the middle text first when the bar is too narrow.
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		left = pill
		gap = max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	}
	filler := lipgloss.NewStyle().
		Background(statusBarBg).
		Render(strings.Repeat(" ", gap))

	return lipgloss.NewStyle().
		Background(statusBarBg).
		MaxWidth(m.width).
		Render(left + filler + right)
}
