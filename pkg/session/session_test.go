package session

import (
	"testing"
	"time"

	"bankchat/pkg/ai"
)

func TestNewStartsWithGreeting(t *testing.T) {
	s := New()

	if s.Len() != 1 {
		t.Fatalf("Expected 1 message, got %d", s.Len())
	}
	first := s.Messages()[0]
	if first.Role != ai.RoleAssistant || first.Content != Greeting {
		t.Fatalf("Unexpected greeting %+v", first)
	}
	if len(s.History()) != 0 {
		t.Fatalf("Expected greeting to be excluded from history, got %v", s.History())
	}
}

func TestAppendAndHistory(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	u := s.Append(ai.RoleUser, "What is my routing number?")
	a := s.Append(ai.RoleAssistant, "You can find it on a cheque.")

	if u.ID == "" || a.ID == "" || u.ID == a.ID {
		t.Fatalf("Expected distinct ids, got %q and %q", u.ID, a.ID)
	}
	if !u.CreatedAt.Equal(fixed) {
		t.Fatalf("Expected timestamp from clock, got %v", u.CreatedAt)
	}

	history := s.History()
	want := []ai.Message{
		{Role: ai.RoleUser, Content: "What is my routing number?"},
		{Role: ai.RoleAssistant, Content: "You can find it on a cheque."},
	}
	if len(history) != len(want) {
		t.Fatalf("Expected %d history entries, got %d", len(want), len(history))
	}
	for i := range want {
		if history[i] != want[i] {
			t.Fatalf("history[%d] = %+v, want %+v", i, history[i], want[i])
		}
	}
	if s.Last().ID != a.ID {
		t.Fatalf("Expected Last() to be the assistant reply")
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := New()
	s.Append(ai.RoleUser, "hi")

	msgs := s.Messages()
	msgs[1].Content = "changed"

	if s.Messages()[1].Content != "hi" {
		t.Fatal("Expected session to be unaffected by caller edits")
	}
}

func TestLastAssistant(t *testing.T) {
	s := New()
	if got, ok := s.LastAssistant(); !ok || got != Greeting {
		t.Fatalf("Expected greeting, got %q %v", got, ok)
	}

	s.Append(ai.RoleUser, "hi")
	s.Append(ai.RoleAssistant, FallbackReply)
	s.Append(ai.RoleUser, "again")

	if got, _ := s.LastAssistant(); got != FallbackReply {
		t.Fatalf("Expected fallback reply, got %q", got)
	}
}
