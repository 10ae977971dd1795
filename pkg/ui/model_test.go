package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"bankchat/pkg/ai"
	"bankchat/pkg/faq"
	"bankchat/pkg/session"

	tea "charm.land/bubbletea/v2"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/x/ansi"
)

type stubChatter struct {
	reply     string
	err       error
	faqs      []faq.Entry
	faqsErr   error
	calls     int
	histories [][]ai.Message
}

func (s *stubChatter) Chat(ctx context.Context, history []ai.Message) (string, error) {
	s.calls++
	s.histories = append(s.histories, history)
	return s.reply, s.err
}

func (s *stubChatter) FAQs(ctx context.Context, query string) ([]faq.Entry, error) {
	return s.faqs, s.faqsErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestModel(c Chatter) Model {
	m := NewModel(c, discardLogger())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return next.(Model)
}

func keyPress(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg(tea.Key{Code: code})
}

func ctrlKey(char rune) tea.KeyPressMsg {
	return tea.KeyPressMsg(tea.Key{Code: char, Mod: tea.ModCtrl})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func plainView(m Model) string {
	return ansi.Strip(m.render())
}

func TestSubmitSendsHistoryWithoutGreeting(t *testing.T) {
	stub := &stubChatter{reply: "A TFSA grows tax-free."}
	m := newTestModel(stub)

	m.input.SetValue("What is a TFSA?")
	m, cmd := update(t, m, keyPress(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("Expected a chat command")
	}
	if !m.pending {
		t.Fatal("Expected pending after submit")
	}
	if m.input.Value() != "" {
		t.Fatalf("Expected input cleared, got %q", m.input.Value())
	}

	m, _ = update(t, m, cmd())

	if m.pending {
		t.Fatal("Expected pending cleared after reply")
	}
	if len(stub.histories) != 1 {
		t.Fatalf("Expected one chat call, got %d", len(stub.histories))
	}
	sent := stub.histories[0]
	if len(sent) != 1 || sent[0].Role != ai.RoleUser || sent[0].Content != "What is a TFSA?" {
		t.Fatalf("Unexpected history %+v", sent)
	}
	last := m.session.Last()
	if last.Role != ai.RoleAssistant || last.Content != "A TFSA grows tax-free." {
		t.Fatalf("Unexpected last message %+v", last)
	}
}

func TestSubmitIsSingleFlight(t *testing.T) {
	stub := &stubChatter{reply: "ok"}
	m := newTestModel(stub)

	m.input.SetValue("first")
	m, first := update(t, m, keyPress(tea.KeyEnter))
	if first == nil {
		t.Fatal("Expected first submit to start a request")
	}

	m.input.SetValue("second")
	m, second := update(t, m, keyPress(tea.KeyEnter))
	if second != nil {
		t.Fatal("Expected second submit to be ignored while pending")
	}
	if m.session.Len() != 2 {
		t.Fatalf("Expected greeting and one question, got %d messages", m.session.Len())
	}
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	m := newTestModel(&stubChatter{})
	m.input.SetValue("   ")
	m, cmd := update(t, m, keyPress(tea.KeyEnter))
	if cmd != nil || m.pending {
		t.Fatal("Expected blank input to be ignored")
	}
}

func TestReplyErrorShowsFallbackAndBanner(t *testing.T) {
	stub := &stubChatter{err: errors.New("server returned 500")}
	m := newTestModel(stub)

	m.input.SetValue("How do I set up direct deposit?")
	m, cmd := update(t, m, keyPress(tea.KeyEnter))
	m, _ = update(t, m, cmd())

	if got := m.session.Last().Content; got != session.FallbackReply {
		t.Fatalf("Expected fallback reply, got %q", got)
	}
	if m.banner != session.ErrorBanner {
		t.Fatalf("Expected error banner, got %q", m.banner)
	}
	if !strings.Contains(plainView(m), "Sorry, there was an error") {
		t.Fatal("Expected banner in view")
	}

	m, _ = update(t, m, keyPress(tea.KeyEscape))
	if m.banner != "" {
		t.Fatal("Expected Esc to dismiss the banner")
	}

	// The fallback stays in the conversation.
	m.input.SetValue("again")
	m, cmd = update(t, m, keyPress(tea.KeyEnter))
	_, _ = update(t, m, cmd())
	sent := stub.histories[1]
	if len(sent) != 3 || sent[1].Content != session.FallbackReply {
		t.Fatalf("Expected fallback in next history, got %+v", sent)
	}
}

func TestTabCyclesSuggestions(t *testing.T) {
	m := newTestModel(&stubChatter{})

	m, _ = update(t, m, keyPress(tea.KeyTab))
	if got := m.input.Value(); got != session.Suggestions[0] {
		t.Fatalf("Expected first suggestion, got %q", got)
	}
	m, _ = update(t, m, keyPress(tea.KeyTab))
	if got := m.input.Value(); got != session.Suggestions[1] {
		t.Fatalf("Expected second suggestion, got %q", got)
	}
}

func TestSuggestionsOnlyOnFirstScreen(t *testing.T) {
	stub := &stubChatter{reply: "Rates vary."}
	m := newTestModel(stub)

	view := plainView(m)
	if !strings.Contains(view, session.Greeting) {
		t.Fatal("Expected greeting in view")
	}
	for _, s := range session.Suggestions {
		if !strings.Contains(view, s) {
			t.Fatalf("Expected suggestion %q in view", s)
		}
	}

	m.input.SetValue(session.Suggestions[0])
	m, cmd := update(t, m, keyPress(tea.KeyEnter))
	m, _ = update(t, m, cmd())

	view = plainView(m)
	if strings.Contains(view, session.Suggestions[3]) {
		t.Fatal("Expected suggestions hidden after first question")
	}
	if !strings.Contains(view, "Rates vary.") {
		t.Fatal("Expected reply in view")
	}

	m, _ = update(t, m, keyPress(tea.KeyTab))
	if m.input.Value() != "" {
		t.Fatal("Expected Tab to do nothing after first question")
	}
}

func TestPendingShowsTypingIndicator(t *testing.T) {
	m := newTestModel(&stubChatter{reply: "ok"})
	m.input.SetValue("hello there")
	m, _ = update(t, m, keyPress(tea.KeyEnter))

	if !strings.Contains(plainView(m), typingLabel) {
		t.Fatal("Expected typing indicator while pending")
	}
}

func TestHelpLoadsFAQs(t *testing.T) {
	stub := &stubChatter{faqs: []faq.Entry{{Question: "How do I reset my PIN?", Answer: "Visit an ATM."}}}
	m := newTestModel(stub)

	m, cmd := update(t, m, keyPress(tea.KeyF1))
	if !m.help {
		t.Fatal("Expected help to open")
	}
	if cmd == nil {
		t.Fatal("Expected FAQ fetch")
	}
	m, _ = update(t, m, cmd())

	view := plainView(m)
	for _, want := range []string{"About this assistant", session.HelpCannot[0], "How do I reset my PIN?", "Visit an ATM."} {
		if !strings.Contains(view, want) {
			t.Fatalf("Expected %q in help view", want)
		}
	}

	m, _ = update(t, m, keyPress(tea.KeyEscape))
	if m.help {
		t.Fatal("Expected Esc to close help")
	}

	_, cmd = update(t, m, keyPress(tea.KeyF1))
	if cmd != nil {
		t.Fatal("Expected FAQs to be fetched once")
	}
}

func TestHelpFallsBackToBuiltinFAQs(t *testing.T) {
	m := newTestModel(&stubChatter{faqsErr: errors.New("offline")})

	m, cmd := update(t, m, keyPress(tea.KeyF1))
	m, _ = update(t, m, cmd())

	if len(m.faqs) != len(faq.Builtin()) {
		t.Fatalf("Expected builtin faqs, got %d", len(m.faqs))
	}
}

func TestQuestionMarkTypesWhenInputNotEmpty(t *testing.T) {
	m := newTestModel(&stubChatter{})
	m.input.SetValue("why")
	m, _ = update(t, m, tea.KeyPressMsg(tea.Key{Code: '?', Text: "?"}))
	if m.help {
		t.Fatal("Expected ? to be typed, not open help")
	}
	if m.input.Value() != "why?" {
		t.Fatalf("Expected typed question mark, got %q", m.input.Value())
	}
}

func TestCopyLastAnswer(t *testing.T) {
	stub := &stubChatter{reply: "Call 1-800-769-2511."}
	m := newTestModel(stub)
	var buf bytes.Buffer
	m.clipboard = &buf

	m.input.SetValue("What is the support number?")
	m, cmd := update(t, m, keyPress(tea.KeyEnter))
	m, _ = update(t, m, cmd())

	m, cmd = update(t, m, ctrlKey('y'))
	if cmd == nil {
		t.Fatal("Expected copy command")
	}
	m, _ = update(t, m, cmd())

	if got, want := buf.String(), osc52.New("Call 1-800-769-2511.").String(); got != want {
		t.Fatalf("Expected %q on clipboard writer, got %q", want, got)
	}
	if !strings.Contains(plainView(m), "Copied answer") {
		t.Fatal("Expected copy status in footer")
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := newTestModel(&stubChatter{})
	_, cmd := update(t, m, ctrlKey('c'))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("Expected tea.QuitMsg")
	}
}

func TestViewFitsWindow(t *testing.T) {
	m := newTestModel(&stubChatter{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})

	lines := strings.Split(m.render(), "\n")
	if len(lines) != 20 {
		t.Fatalf("Expected 20 lines, got %d", len(lines))
	}
}
