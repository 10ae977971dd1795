// Package format tidies model output so lists and paragraphs render with
// predictable line breaks.
package format

import (
	"log/slog"
	"time"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds every rule. A rule that times out leaves its input as is.
const matchTimeout = 250 * time.Millisecond

type rule struct {
	name        string
	re          *regexp2.Regexp
	replacement string
}

func mustRule(name, pattern, replacement string) rule {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = matchTimeout
	return rule{name: name, re: re, replacement: replacement}
}

// Rules run in this order. Each bullet glyph is matched on its own, so a
// "•" item followed by a "-" item is not tightened.
var rules = []rule{
	mustRule("numbered_items", `(\d+\.\s+[^\n]+?)\s+(?=\d+\.\s)`, "$1\n"),
	mustRule("numbered_indent", `\n\s+(\d+\.\s)`, "\n$1"),
	mustRule("dot_bullets", `(•\s+[^\n]+?)\s+(?=•\s)`, "$1\n"),
	mustRule("dash_bullets", `(-\s+[^\n]+?)\s+(?=-\s)`, "$1\n"),
	mustRule("star_bullets", `(\*\s+[^\n]+?)\s+(?=\*\s)`, "$1\n"),
	mustRule("paragraph_breaks", `([^\n])\n(?!\s*(?:\d+\.|•|-|\*))`, "$1\n\n"),
}

// Normalize puts numbered items and bullets on their own lines and turns
// single line breaks between prose into blank-line paragraph breaks.
//
// Normalize is not idempotent: running it twice adds another break to every
// paragraph boundary. Apply it exactly once per model reply.
func Normalize(raw string) string {
	out := raw
	for _, r := range rules {
		out = r.apply(out)
	}
	return out
}

func (r rule) apply(in string) string {
	out, err := r.re.Replace(in, r.replacement, -1, -1)
	if err != nil {
		slog.Warn("format_rule_failed", "rule", r.name, "error", err)
		return in
	}
	return out
}
