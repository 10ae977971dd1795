package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"bankchat/pkg/ai"
	"bankchat/pkg/session"
)

// RunLines is the client used when stdin is not a terminal: every input line
// is one question and every answer is printed as plain text.
func RunLines(ctx context.Context, in io.Reader, out io.Writer, chatter Chatter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s := session.New()
	fmt.Fprintf(out, "%s: %s\n", assistantLabel, session.Greeting)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		s.Append(ai.RoleUser, text)

		reply, err := chatter.Chat(ctx, s.History())
		if err != nil {
			logger.Error("ui_chat_failed", "error", err)
			s.Append(ai.RoleAssistant, session.FallbackReply)
			fmt.Fprintf(out, "\n%s: %s\n[%s]\n", assistantLabel, session.FallbackReply, session.ErrorBanner)
			continue
		}
		s.Append(ai.RoleAssistant, reply)
		fmt.Fprintf(out, "\n%s: %s\n", assistantLabel, reply)
	}
	return scanner.Err()
}
