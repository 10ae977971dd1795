// Package ui is the terminal chat client.
package ui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"bankchat/pkg/ai"
	"bankchat/pkg/faq"
	"bankchat/pkg/session"
	"bankchat/pkg/ui/styles"

	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/x/ansi"
)

const (
	headerTitle    = "RBC Virtual Assistant"
	headerHint     = "F1 Help"
	inputHeight    = 3
	footerChat     = "Enter Send | Tab Suggestion | Ctrl+Y Copy answer | Esc Dismiss | Ctrl+C Quit"
	footerHelp     = "Up/Down Scroll | Esc Close"
	inputPrompt    = "Ask a banking question..."
	scrollPageSize = 10
)

// Chatter is the server API the model needs. *client.Client implements it.
type Chatter interface {
	Chat(ctx context.Context, history []ai.Message) (string, error)
	FAQs(ctx context.Context, query string) ([]faq.Entry, error)
}

type replyMsg struct {
	content string
	err     error
}

type faqsMsg struct {
	entries []faq.Entry
	err     error
}

type copiedMsg struct{}

// Model is the bubbletea model of a chat session.
type Model struct {
	chatter Chatter
	session *session.Session
	logger  *slog.Logger
	input   textarea.Model

	width  int
	height int

	pending bool
	banner  string

	scrollY int
	follow  bool

	help        bool
	helpScrollY int
	faqs        []faq.Entry
	faqsLoaded  bool

	suggestion int
	status     string

	clipboard io.Writer
}

// NewModel returns a model with a fresh session.
func NewModel(chatter Chatter, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	input := textarea.New()
	input.Placeholder = inputPrompt
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	return Model{
		chatter:    chatter,
		session:    session.New(),
		logger:     logger,
		input:      input,
		follow:     true,
		suggestion: -1,
		clipboard:  os.Stdout,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(msg.Width, 1))
		return m, nil

	case replyMsg:
		return m.handleReply(msg), nil

	case faqsMsg:
		if msg.err != nil {
			m.logger.Warn("ui_faqs_failed", "error", msg.err)
			m.faqs = faq.Builtin()
		} else {
			m.faqs = msg.entries
		}
		m.faqsLoaded = true
		return m, nil

	case copiedMsg:
		m.status = "Copied answer to clipboard"
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.help {
		switch key {
		case "esc", "f1", "q", "?":
			m.help = false
		case "up":
			m.helpScrollY = max(m.helpScrollY-1, 0)
		case "down":
			m.helpScrollY++
		case "pgup":
			m.helpScrollY = max(m.helpScrollY-scrollPageSize, 0)
		case "pgdown":
			m.helpScrollY += scrollPageSize
		}
		return m, nil
	}

	m.status = ""
	switch key {
	case "f1":
		return m.openHelp()
	case "?":
		if m.input.Value() == "" {
			return m.openHelp()
		}
	case "esc":
		m.banner = ""
		return m, nil
	case "enter":
		return m.submit()
	case "tab":
		if m.showSuggestions() {
			m.suggestion = (m.suggestion + 1) % len(session.Suggestions)
			m.input.SetValue(session.Suggestions[m.suggestion])
			m.input.CursorEnd()
		}
		return m, nil
	case "ctrl+y":
		return m, m.copyLastAnswer()
	case "up", "pgup":
		step := 1
		if key == "pgup" {
			step = scrollPageSize
		}
		m.scrollY = max(m.scrollY-step, 0)
		m.follow = false
		return m, nil
	case "down", "pgdown":
		step := 1
		if key == "pgdown" {
			step = scrollPageSize
		}
		m.scrollY = min(m.scrollY+step, m.maxScroll())
		m.follow = m.scrollY >= m.maxScroll()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the typed question unless a request is already outstanding.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.pending {
		return m, nil
	}
	m.input.Reset()
	m.banner = ""
	m.suggestion = -1
	m.session.Append(ai.RoleUser, text)
	m.pending = true
	m.follow = true

	history := m.session.History()
	chatter := m.chatter
	m.logger.Info("ui_chat_submit", "messages", len(history))
	return m, func() tea.Msg {
		reply, err := chatter.Chat(context.Background(), history)
		return replyMsg{content: reply, err: err}
	}
}

func (m Model) handleReply(msg replyMsg) Model {
	m.pending = false
	m.follow = true
	if msg.err != nil {
		m.logger.Error("ui_chat_failed", "error", msg.err)
		m.session.Append(ai.RoleAssistant, session.FallbackReply)
		m.banner = session.ErrorBanner
		return m
	}
	m.session.Append(ai.RoleAssistant, msg.content)
	return m
}

func (m Model) openHelp() (tea.Model, tea.Cmd) {
	m.help = true
	m.helpScrollY = 0
	if m.faqsLoaded {
		return m, nil
	}
	chatter := m.chatter
	return m, func() tea.Msg {
		entries, err := chatter.FAQs(context.Background(), "")
		return faqsMsg{entries: entries, err: err}
	}
}

func (m Model) copyLastAnswer() tea.Cmd {
	text, ok := m.session.LastAssistant()
	if !ok {
		return nil
	}
	out := m.clipboard
	return func() tea.Msg {
		_, _ = fmt.Fprint(out, osc52.New(text))
		return copiedMsg{}
	}
}

// showSuggestions reports whether only the greeting is on screen.
func (m Model) showSuggestions() bool {
	return m.session.Len() == 1 && !m.pending
}

func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m Model) render() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	top := []string{m.renderHeader()}
	if m.banner != "" {
		banner := ansi.Truncate(m.banner+"  (Esc to dismiss)", m.width-2, "...")
		top = append(top, padStyled(styles.BannerStyle.Render(banner), m.width))
	}

	var bottom []string
	if m.help {
		bottom = append(bottom, styles.FooterStyle.Render(truncateToWidth(footerHelp, m.width)))
	} else {
		if m.showSuggestions() {
			bottom = append(bottom, m.renderSuggestions()...)
		}
		bottom = append(bottom, styles.SeparatorStyle.Render(strings.Repeat("─", m.width)))
		bottom = append(bottom, strings.Split(m.input.View(), "\n")...)
		footer := footerChat
		if m.status != "" {
			footer = m.status
		}
		bottom = append(bottom, styles.FooterStyle.Render(truncateToWidth(footer, m.width)))
	}

	bodyHeight := max(m.height-len(top)-len(bottom), 1)

	var body []string
	if m.help {
		body = m.renderHelp(bodyHeight)
	} else {
		body = m.renderBodyWindow(bodyHeight)
	}

	lines := append(top, body...)
	lines = append(lines, bottom...)
	return strings.Join(lines, "\n")
}

func (m Model) renderHeader() string {
	title := headerTitle
	gap := m.width - 2 - lipgloss.Width(title) - lipgloss.Width(headerHint)
	if gap < 1 {
		return styles.HeaderStyle.Width(m.width).Render(truncateToWidth(title, m.width-2))
	}
	return styles.HeaderStyle.Width(m.width).Render(title + strings.Repeat(" ", gap) + headerHint)
}

func (m Model) transcriptLines() []string {
	return renderTranscript(m.session.Messages(), m.width, m.pending)
}

func (m Model) bodyHeight() int {
	h := m.height - 1 - inputHeight - 2
	if m.banner != "" {
		h--
	}
	if m.showSuggestions() {
		h -= len(m.renderSuggestions())
	}
	return max(h, 1)
}

func (m Model) maxScroll() int {
	return max(len(m.transcriptLines())-m.bodyHeight(), 0)
}

func (m Model) renderBodyWindow(height int) []string {
	lines := m.transcriptLines()
	start := m.scrollY
	if m.follow {
		start = len(lines) - height
	}
	start = min(max(start, 0), max(len(lines)-height, 0))
	end := min(start+height, len(lines))

	window := make([]string, 0, height)
	window = append(window, lines[start:end]...)
	for len(window) < height {
		window = append(window, "")
	}
	return window
}

func (m Model) renderSuggestions() []string {
	lines := []string{styles.TextMutedStyle.Render("Try asking (Tab to fill):")}
	for i, s := range session.Suggestions {
		label := fmt.Sprintf("%d. %s", i+1, s)
		label = truncateToWidth(label, m.width-2)
		if i == m.suggestion {
			lines = append(lines, styles.SuggestionStyle.Render(label))
			continue
		}
		lines = append(lines, " "+styles.TextStyle.Render(label))
	}
	return lines
}

func (m Model) renderHelp(height int) []string {
	width := max(m.width-6, 10)

	var content []string
	content = append(content, styles.TitleStyle.Render("About this assistant"), "")
	content = append(content, renderBody(session.HelpIntro, width)...)
	content = append(content, "", styles.TextBoldStyle.Render("I can:"))
	for _, item := range session.HelpCan {
		content = append(content, wrapLine("• "+item, width, 2)...)
	}
	content = append(content, "", styles.TextBoldStyle.Render("I cannot:"))
	for _, item := range session.HelpCannot {
		content = append(content, wrapLine("• "+item, width, 2)...)
	}
	content = append(content, "", styles.TitleStyle.Render("Frequently asked questions"))
	if !m.faqsLoaded {
		content = append(content, styles.TextMutedStyle.Render("Loading..."))
	}
	for _, e := range m.faqs {
		content = append(content, "")
		content = append(content, wrapLine("**Q: "+e.Question+"**", width, 3)...)
		content = append(content, wrapLine("A: "+e.Answer, width, 3)...)
	}

	inner := max(height-4, 1)
	start := min(m.helpScrollY, max(len(content)-inner, 0))
	end := min(start+inner, len(content))
	box := styles.BoxStyle.Width(m.width).Render(strings.Join(content[start:end], "\n"))

	lines := strings.Split(box, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines[:height]
}
