// Package session holds the message list of one conversation.
package session

import (
	"time"

	"bankchat/pkg/ai"

	"github.com/google/uuid"
)

// Message is one immutable entry in a conversation.
type Message struct {
	ID        string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Session is an append-only conversation. It is not safe for concurrent use;
// callers allow one outstanding completion at a time.
type Session struct {
	messages []Message
	now      func() time.Time
}

// New returns a session that starts with the greeting.
func New() *Session {
	s := &Session{now: time.Now}
	s.append(ai.RoleAssistant, Greeting)
	return s
}

// Append adds a message and returns it.
func (s *Session) Append(role, content string) Message {
	return s.append(role, content)
}

func (s *Session) append(role, content string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Messages returns a copy of every message, greeting included.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// History returns what is sent to the gateway: every message after the
// greeting, stripped to role and content.
func (s *Session) History() []ai.Message {
	if len(s.messages) <= 1 {
		return []ai.Message{}
	}
	out := make([]ai.Message, 0, len(s.messages)-1)
	for _, msg := range s.messages[1:] {
		out = append(out, ai.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// Last returns the most recent message.
func (s *Session) Last() Message {
	return s.messages[len(s.messages)-1]
}

// LastAssistant returns the content of the most recent assistant message.
func (s *Session) LastAssistant() (string, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == ai.RoleAssistant {
			return s.messages[i].Content, true
		}
	}
	return "", false
}

// Len returns the number of messages, greeting included.
func (s *Session) Len() int {
	return len(s.messages)
}
