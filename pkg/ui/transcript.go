package ui

import (
	"regexp"
	"strings"

	"bankchat/pkg/ai"
	"bankchat/pkg/session"
	"bankchat/pkg/ui/styles"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"
)

const (
	userLabel      = "You"
	assistantLabel = "Assistant"
	typingLabel    = "Assistant is typing..."
)

// listMarker matches the start of a numbered or bulleted line so wrapped
// continuation lines can be indented under the item text.
var listMarker = regexp.MustCompile(`^(\s*)(\d+\.|•|-|\*)\s+`)

type token struct {
	text string
	bold bool
}

// renderTranscript lays out every message of msgs for a column of width
// cells. A trailing typing indicator is added while pending.
func renderTranscript(msgs []session.Message, width int, pending bool) []string {
	var lines []string
	for i, msg := range msgs {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, renderMessage(msg, width)...)
	}
	if pending {
		lines = append(lines, "", styles.TextMutedStyle.Render(truncateToWidth(typingLabel, width)))
	}
	return lines
}

func renderMessage(msg session.Message, width int) []string {
	label := styles.AssistantLabelStyle.Render(assistantLabel + ":")
	if msg.Role == ai.RoleUser {
		label = styles.UserLabelStyle.Render(userLabel + ":")
	}
	lines := []string{label}
	return append(lines, renderBody(msg.Content, width)...)
}

// renderBody wraps content to width. Blank lines are kept so the paragraph
// breaks added by the normalizer stay visible.
func renderBody(content string, width int) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = sanitize(content)

	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.ReplaceAll(line, "\t", "    ")
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		indent := 0
		if m := listMarker.FindString(line); m != "" {
			indent = runewidth.StringWidth(m)
		}
		out = append(out, wrapLine(line, width, indent)...)
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

func wrapLine(line string, width, indent int) []string {
	if width <= 0 {
		return []string{line}
	}
	if indent >= width/2 {
		indent = 0
	}

	var lines []string
	var current []token
	lineWidth := 0
	prefix := ""

	flush := func() {
		lines = append(lines, prefix+renderTokens(current))
		current = nil
		lineWidth = 0
		prefix = strings.Repeat(" ", indent)
	}

	for _, tok := range tokenize(line) {
		avail := width - len(prefix)
		for _, part := range splitByWidth(tok.text, avail) {
			w := runewidth.StringWidth(part)
			if lineWidth > 0 && lineWidth+1+w > avail {
				flush()
				avail = width - len(prefix)
			}
			if lineWidth > 0 {
				lineWidth++
			}
			current = append(current, token{text: part, bold: tok.bold})
			lineWidth += w
		}
	}
	if len(current) > 0 {
		flush()
	}
	return lines
}

// tokenize splits line into words, toggling bold at every "**".
func tokenize(line string) []token {
	var tokens []token
	bold := false
	for len(line) > 0 {
		idx := strings.Index(line, "**")
		segment := line
		if idx >= 0 {
			segment = line[:idx]
		}
		for _, word := range strings.Fields(segment) {
			tokens = append(tokens, token{text: word, bold: bold})
		}
		if idx < 0 {
			break
		}
		bold = !bold
		line = line[idx+2:]
	}
	return tokens
}

func renderTokens(tokens []token) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteString(" ")
		}
		if tok.bold {
			sb.WriteString(styles.TextBoldStyle.Render(tok.text))
		} else {
			sb.WriteString(styles.TextStyle.Render(tok.text))
		}
	}
	return sb.String()
}

func splitByWidth(text string, width int) []string {
	if width <= 0 || text == "" {
		return []string{text}
	}
	var parts []string
	var sb strings.Builder
	current := 0
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if current+rw > width && current > 0 {
			parts = append(parts, sb.String())
			sb.Reset()
			current = 0
		}
		sb.WriteRune(r)
		current += rw
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "...")
}

func padStyled(text string, width int) string {
	if w := lipgloss.Width(text); w < width {
		return text + strings.Repeat(" ", width-w)
	}
	return text
}

// sanitize drops control characters other than newline and tab so model
// output cannot move the cursor.
func sanitize(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		if r == '\n' || r == '\t' {
			sb.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
