package ui

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"

	"github.com/danhigham/otpfeed/internal/domain"
)

// Service is the feed surface the dashboard drives.
type Service interface {
	Snapshot() domain.Snapshot
	ForceCheck(ctx context.Context) int
	ClearAll()
	Diagnostics() domain.Diagnostics
}

type focusTarget int

const (
	focusFeed focusTarget = iota
	focusDetail
)

const (
	feedListWidth  = 46
	statusHeight   = 1
	refreshTimeout = 30 * time.Second
	splashMinimum  = 2 * time.Second
)

// Model is the root Bubble Tea model.
type Model struct {
	feed        FeedListModel
	detail      DetailModel
	status      statusModel
	help        HelpModel
	diagnostics DiagnosticsModel
	splash      SplashModel

	svc Service

	focus    focusTarget
	checking bool
	width    int
	height   int
}

// NewModel creates the root model with all sub-components.
func NewModel(svc Service) Model {
	m := Model{
		feed:        NewFeedListModel(),
		detail:      NewDetailModel(),
		status:      newStatusModel(),
		help:        NewHelpModel(),
		diagnostics: NewDiagnosticsModel(),
		splash:      NewSplashModel(),
		svc:         svc,
		focus:       focusFeed,
	}
	return m.updateFocus()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		StoreUpdatedCmd,
		tea.Tick(splashMinimum, func(time.Time) tea.Msg { return SplashDoneMsg{} }),
		clockTick(),
	)
}

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return clockTickMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.distributeSize()
		return m, nil

	case StoreUpdatedMsg:
		return m.refreshFromStore(), nil

	case refreshDoneMsg:
		m.checking = false
		m.status = m.status.SetNotice(fmt.Sprintf("%s messages in feed", humanize.Comma(int64(msg.count))))
		return m.refreshFromStore(), nil

	case clearedMsg:
		m.status = m.status.SetNotice("Feed cleared")
		return m.refreshFromStore(), nil

	case SplashDoneMsg:
		m.splash = m.splash.TimerDone()
		return m, nil

	case clockTickMsg:
		return m, clockTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.splash.IsVisible() {
		m.splash = m.splash.Dismiss()
		return m, nil
	}

	// While filtering, every key belongs to the list.
	if m.focus == focusFeed && m.feed.Filtering() {
		var cmd tea.Cmd
		m.feed, cmd = m.feed.Update(msg)
		m.detail = m.detail.SetMessage(m.feed.Selected())
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "esc":
		switch {
		case m.help.IsVisible():
			m.help = m.help.Hide()
		case m.diagnostics.IsVisible():
			m.diagnostics = m.diagnostics.Hide()
		default:
			m.focus = focusFeed
			m = m.updateFocus()
		}
		return m, nil
	case "h", "f1":
		m.help = m.help.Toggle()
		return m, nil
	case "d":
		m.diagnostics = m.diagnostics.SetDiagnostics(m.svc.Diagnostics()).Toggle()
		return m, nil
	case "r":
		if m.checking {
			return m, nil
		}
		m.checking = true
		m.status = m.status.SetNotice("Checking panel...")
		return m, m.forceCheck()
	case "c":
		return m, m.clearAll()
	case "tab", "shift+tab":
		m.focus = (m.focus + 1) % 2
		m = m.updateFocus()
		return m, nil
	}

	if m.help.IsVisible() {
		return m, nil
	}
	if m.diagnostics.IsVisible() {
		var cmd tea.Cmd
		m.diagnostics, cmd = m.diagnostics.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusFeed:
		m.feed, cmd = m.feed.Update(msg)
		m.detail = m.detail.SetMessage(m.feed.Selected())
	case focusDetail:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func (m Model) forceCheck() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		return refreshDoneMsg{count: svc.ForceCheck(ctx)}
	}
}

func (m Model) clearAll() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		svc.ClearAll()
		return clearedMsg{}
	}
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top, m.feed.View(), m.detail.View())
	full := lipgloss.JoinVertical(lipgloss.Left, panes, m.status.View())

	// Clamp to terminal dimensions
	mainContent := lipgloss.NewStyle().
		MaxWidth(m.width).
		MaxHeight(m.height).
		Render(full)

	var overlay string
	switch {
	case m.splash.IsVisible():
		overlay = m.splash.View()
	case m.help.IsVisible():
		overlay = m.help.View()
	case m.diagnostics.IsVisible():
		overlay = m.diagnostics.View()
	}
	if overlay == "" {
		v.SetContent(mainContent)
		return v
	}

	x, y := centerOffset(overlay, m.width, m.height)
	bg := lipgloss.NewLayer(mainContent)
	fg := lipgloss.NewLayer(overlay).X(x).Y(y).Z(1)
	v.SetContent(lipgloss.NewCompositor(bg, fg).Render())
	return v
}

func (m Model) distributeSize() Model {
	contentHeight := max(m.height-statusHeight, 1)

	flWidth := min(feedListWidth, m.width)
	m.feed = m.feed.SetSize(flWidth, contentHeight)
	m.detail = m.detail.SetSize(max(m.width-flWidth, 1), contentHeight)
	m.status = m.status.SetWidth(m.width)

	m.help = m.help.SetSize(m.width, m.height)
	m.diagnostics = m.diagnostics.SetSize(m.width, m.height)
	m.splash = m.splash.SetSize(m.width, m.height)
	return m
}

func (m Model) updateFocus() Model {
	m.feed = m.feed.SetFocused(m.focus == focusFeed)
	m.detail = m.detail.SetFocused(m.focus == focusDetail)
	return m
}

func (m Model) refreshFromStore() Model {
	snap := m.svc.Snapshot()
	m.feed = m.feed.WithItems(snap.Messages)
	m.detail = m.detail.SetMessage(m.feed.Selected())
	m.status = m.status.SetCounters(snap.Stats)
	if m.diagnostics.IsVisible() {
		m.diagnostics = m.diagnostics.SetDiagnostics(m.svc.Diagnostics())
	}
	m.splash = m.splash.SetCounters(snap.Stats)
	return m
}

// App wraps the Bubble Tea program for external use.
type App struct {
	program *tea.Program
}

// NewApp creates a new App ready to Run.
func NewApp(svc Service) *App {
	return &App{program: tea.NewProgram(NewModel(svc))}
}

// Run starts the Bubble Tea event loop (blocks until quit).
func (a *App) Run() error {
	_, err := a.program.Run()
	return err
}

// Quit asks the program to exit.
func (a *App) Quit() {
	a.program.Quit()
}

// Send sends a message into the Bubble Tea event loop from external goroutines.
func (a *App) Send(msg tea.Msg) {
	go a.program.Send(msg)
}

// DrawFunc returns a function suitable for state.Store that triggers a re-render.
func (a *App) DrawFunc() func() {
	return func() {
		a.Send(StoreUpdatedMsg{})
	}
}
