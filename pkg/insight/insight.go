// Package insight offers optional message analysis: sentiment, banking
// entities, document reading and reply suggestions. Every call degrades to
// a fixed answer instead of failing.
package insight

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"
)

// Mood is the detected customer mood.
type Mood string

const (
	MoodHappy      Mood = "happy"
	MoodNeutral    Mood = "neutral"
	MoodConcerned  Mood = "concerned"
	MoodConfused   Mood = "confused"
	MoodFrustrated Mood = "frustrated"
	MoodAngry      Mood = "angry"
)

var moods = []string{"happy", "neutral", "concerned", "confused", "frustrated", "angry"}

// Tone is the register of a suggested reply.
type Tone string

const (
	ToneFormal     Tone = "formal"
	ToneFriendly   Tone = "friendly"
	ToneEmpathetic Tone = "empathetic"
	ToneDirect     Tone = "direct"
)

var tones = []string{"formal", "friendly", "empathetic", "direct"}

const (
	maxEntities    = 5
	maxSuggestions = 3
)

// Sentiment describes how a customer message reads.
type Sentiment struct {
	Mood       Mood    `json:"mood"`
	Confidence float64 `json:"confidence"`
	Urgency    int     `json:"urgency"`
}

// Suggestion is a candidate reply for an agent.
type Suggestion struct {
	ResponseText string `json:"responseText"`
	Tone         Tone   `json:"tone"`
	Rationale    string `json:"rationale"`
}

// Analyzer is implemented by Gemini and Fallback.
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) Sentiment
	ExtractEntities(ctx context.Context, text string) []string
	ProcessDocumentImage(ctx context.Context, imageURL string) string
	SuggestResponses(ctx context.Context, query string, history, entities []string) []Suggestion
}

// Fixed answers used for trivial input and after failures.
var (
	TrivialSentiment  = Sentiment{Mood: MoodNeutral, Confidence: 0.9, Urgency: 1}
	FallbackSentiment = Sentiment{Mood: MoodNeutral, Confidence: 0.5, Urgency: 1}

	GreetingSuggestion = Suggestion{
		ResponseText: "Hello! How can I assist you with your banking needs today?",
		Tone:         ToneFriendly,
		Rationale:    "Responding to a simple greeting with a friendly welcome",
	}
	FallbackSuggestion = Suggestion{
		ResponseText: "I understand your question. Let me help you with that.",
		Tone:         ToneFriendly,
		Rationale:    "Generic helpful response when specific suggestions can't be generated",
	}
)

// DocumentFallback is returned when a document image cannot be read.
const DocumentFallback = "Unable to process the document image. Please try again or contact support."

// isTrivial reports whether text is a bare greeting or too short to analyze.
func isTrivial(text string) bool {
	return strings.ToLower(strings.TrimSpace(text)) == "hey" || utf8.RuneCountInString(text) < 5
}

// Fallback answers every call without a model.
type Fallback struct{}

func (Fallback) AnalyzeSentiment(_ context.Context, text string) Sentiment {
	if isTrivial(text) {
		return TrivialSentiment
	}
	return FallbackSentiment
}

func (Fallback) ExtractEntities(context.Context, string) []string {
	return []string{}
}

func (Fallback) ProcessDocumentImage(context.Context, string) string {
	return DocumentFallback
}

func (Fallback) SuggestResponses(_ context.Context, query string, _, _ []string) []Suggestion {
	if isTrivial(query) {
		return []Suggestion{GreetingSuggestion}
	}
	return []Suggestion{FallbackSuggestion}
}

func validSentiment(s Sentiment) bool {
	return slices.Contains(moods, string(s.Mood)) &&
		s.Confidence >= 0 && s.Confidence <= 1 &&
		s.Urgency >= 1 && s.Urgency <= 5
}

func cleanEntities(in []string) []string {
	out := make([]string, 0, maxEntities)
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		out = append(out, e)
		if len(out) == maxEntities {
			break
		}
	}
	return out
}

func cleanSuggestions(in []Suggestion) []Suggestion {
	out := make([]Suggestion, 0, maxSuggestions)
	for _, s := range in {
		if strings.TrimSpace(s.ResponseText) == "" || !slices.Contains(tones, string(s.Tone)) {
			continue
		}
		out = append(out, s)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

var _ Analyzer = Fallback{}
