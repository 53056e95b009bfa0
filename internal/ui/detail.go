package ui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/danhigham/otpfeed/internal/domain"
)

// DetailModel shows the selected message rendered as markdown through glamour.
type DetailModel struct {
	viewport viewport.Model
	renderer *glamour.TermRenderer
	focused  bool
	width    int
	height   int
	msg      domain.Message
	hasMsg   bool
}

func NewDetailModel() DetailModel {
	return DetailModel{viewport: viewport.New()}
}

func (m DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "j":
			m.viewport.ScrollDown(1)
			return m, nil
		case "k":
			m.viewport.ScrollUp(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m DetailModel) View() string {
	contentH := max(m.height-2, 0)
	content := truncateHeight(m.viewport.View(), contentH)

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(m.width).
		Height(m.height)
	style = applyBorderColor(style, m.focused)

	return style.Render(content)
}

func (m DetailModel) SetSize(w, h int) DetailModel {
	m.width = w
	m.height = h
	m.viewport.SetWidth(max(w-2, 1))
	m.viewport.SetHeight(max(h-2, 1))
	m = m.recreateRenderer()
	return m.render()
}

func (m DetailModel) SetFocused(f bool) DetailModel {
	m.focused = f
	return m
}

// SetMessage shows msg. The scroll position resets only when the message
// changes.
func (m DetailModel) SetMessage(msg domain.Message, ok bool) DetailModel {
	changed := ok != m.hasMsg || msg.ID != m.msg.ID
	m.msg, m.hasMsg = msg, ok
	m = m.render()
	if changed {
		m.viewport.GotoTop()
	}
	return m
}

func (m DetailModel) recreateRenderer() DetailModel {
	wordWrap := max(m.viewport.Width()-2, 10)
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wordWrap),
	)
	if err == nil {
		m.renderer = r
	}
	return m
}

func (m DetailModel) render() DetailModel {
	if !m.hasMsg {
		m.viewport.SetContent(missingStyle.Render("No message selected"))
		return m
	}
	md := MessageMarkdown(m.msg)
	out := md
	if m.renderer != nil {
		if r, err := m.renderer.Render(md); err == nil {
			out = strings.Trim(r, "\n")
		}
	}
	m.viewport.SetContent(out)
	return m
}

// MessageMarkdown formats a feed message as a markdown document.
func MessageMarkdown(msg domain.Message) string {
	var b strings.Builder

	if msg.OTP == domain.OTPNotFound {
		b.WriteString("# No code found\n\n")
	} else {
		fmt.Fprintf(&b, "# `%s`\n\n", msg.OTP)
	}

	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k, v string) {
		fmt.Fprintf(&b, "| %s | %s |\n", k, escapeMarkdown(v))
	}
	row("Service", msg.Service)
	row("Country", strings.TrimSpace(msg.CountryFlag+" "+msg.Country))
	row("Phone", msg.PhoneMasked)
	row("Received", msg.Timestamp)
	row("ID", msg.ID)

	if msg.RawMessage != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(msg.RawMessage, "\n") {
			b.WriteString("> " + escapeMarkdown(line) + "\n")
		}
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"|", `\|`,
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
)

// escapeMarkdown keeps panel text from being interpreted as markup.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
