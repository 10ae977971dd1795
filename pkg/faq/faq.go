// Package faq serves the built-in catalogue of common banking questions.
package faq

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed faqs.yaml
var builtin []byte

// Entry is one question and its canned answer.
type Entry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Parse decodes a YAML list of entries. Entries without a question or an
// answer are rejected.
func Parse(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse faqs: %w", err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("parse faqs: entry %d is incomplete", i)
		}
	}
	return entries, nil
}

// Builtin returns the embedded catalogue.
func Builtin() []Entry {
	entries, err := Parse(builtin)
	if err != nil {
		panic(err)
	}
	return entries
}

// Search returns the entries whose question or answer contains every word
// of query, case-insensitively. An empty query returns all entries.
func Search(entries []Entry, query string) []Entry {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		text := strings.ToLower(e.Question + " " + e.Answer)
		match := true
		for _, w := range words {
			if !strings.Contains(text, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}
	return out
}
