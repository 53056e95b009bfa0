package ui

import (
	"fmt"
	"io"

	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/danhigham/otpfeed/internal/domain"
)

// feedItem implements list.Item for one feed message.
type feedItem struct {
	msg domain.Message
}

func (i feedItem) FilterValue() string {
	return i.msg.Service + " " + i.msg.Phone + " " + i.msg.Country
}

// feedItemDelegate renders a feedItem in two lines: service and code, then
// phone and time.
type feedItemDelegate struct{}

func (d feedItemDelegate) Height() int                             { return 2 }
func (d feedItemDelegate) Spacing() int                            { return 1 }
func (d feedItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d feedItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	fi, ok := item.(feedItem)
	if !ok {
		return
	}
	msg := fi.msg

	isSelected := index == m.Index()
	// Account for the cursor prefix ("  " or "> ") in available width.
	contentWidth := max(m.Width()-2, 1)

	titleStyle := lipgloss.NewStyle().MaxWidth(contentWidth).MaxHeight(1)
	descStyle := lipgloss.NewStyle().MaxWidth(contentWidth).MaxHeight(1).Foreground(lipgloss.Color("240"))

	cursor := "  "
	if isSelected {
		cursor = "> "
		titleStyle = titleStyle.Foreground(lipgloss.Color("170")).Bold(true)
		descStyle = descStyle.Foreground(lipgloss.Color("250"))
	}

	code := otpStyle.Render(msg.OTP)
	if msg.OTP == domain.OTPNotFound {
		code = missingStyle.Render("no code")
	}
	title := fmt.Sprintf("%s %s  %s", msg.CountryFlag, msg.Service, code)
	desc := fmt.Sprintf("%s · %s", msg.PhoneMasked, msg.Timestamp)

	fmt.Fprintf(w, "%s%s\n%s%s", cursor, titleStyle.Render(title), "  ", descStyle.Render(desc))
}

// FeedListModel wraps bubbles/list for the feed sidebar.
type FeedListModel struct {
	list    list.Model
	focused bool
	width   int
	height  int
}

func NewFeedListModel() FeedListModel {
	l := list.New(nil, feedItemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	return FeedListModel{list: l}
}

func (m FeedListModel) Update(msg tea.Msg) (FeedListModel, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Filtering reports whether the user is typing a filter, so global keys
// should be passed through.
func (m FeedListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m FeedListModel) View() string {
	contentH := max(m.height-2, 0)

	content := truncateHeight(m.list.View(), contentH)
	if len(m.list.Items()) == 0 {
		content = missingStyle.Render("  Waiting for messages...")
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(m.width).
		Height(m.height)
	style = applyBorderColor(style, m.focused)

	return style.Render(content)
}

// WithItems replaces the feed, keeping the selection on the same message id
// when it is still present.
func (m FeedListModel) WithItems(msgs []domain.Message) FeedListModel {
	selected, hadSelection := m.Selected()

	items := make([]list.Item, len(msgs))
	idx := 0
	for i, msg := range msgs {
		items[i] = feedItem{msg: msg}
		if hadSelection && msg.ID == selected.ID {
			idx = i
		}
	}
	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(idx)
	}
	return m
}

// Selected returns the highlighted message.
func (m FeedListModel) Selected() (domain.Message, bool) {
	fi, ok := m.list.SelectedItem().(feedItem)
	if !ok {
		return domain.Message{}, false
	}
	return fi.msg, true
}

func (m FeedListModel) SetSize(w, h int) FeedListModel {
	m.width = w
	m.height = h
	m.list.SetSize(max(w-2, 1), max(h-2, 1))
	return m
}

func (m FeedListModel) SetFocused(f bool) FeedListModel {
	m.focused = f
	return m
}
