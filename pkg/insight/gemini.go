package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"bankchat/pkg/config"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

type modelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var newGenaiClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// Gemini answers insight calls with Gemini structured output.
type Gemini struct {
	models      modelsClient
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

// New returns a Gemini analyzer when a Google key is configured and the
// Fallback analyzer otherwise.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	g, err := NewGemini(ctx, cfg.Providers.Google, logger)
	if err != nil {
		logger.Info("insight_fallback_enabled", "reason", err.Error())
		return Fallback{}
	}
	return g
}

// NewGemini builds a Gemini analyzer from the google provider settings.
func NewGemini(ctx context.Context, settings config.ProviderConfig, logger *slog.Logger) (*Gemini, error) {
	apiKey := settings.ResolveAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("google api_key is required")
	}
	model := strings.TrimSpace(settings.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := newGenaiClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}

	logger.Debug("insight_gemini_ready", "model", model)
	return &Gemini{
		models:      client.Models,
		model:       model,
		temperature: settings.Temperature,
		maxTokens:   settings.MaxTokens,
		timeout:     time.Duration(settings.APITimeoutSeconds) * time.Second,
		logger:      logger,
	}, nil
}

var sentimentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"mood": {
			Type:        genai.TypeString,
			Enum:        moods,
			Description: "The detected mood of the customer",
		},
		"confidence": {
			Type:        genai.TypeNumber,
			Minimum:     genai.Ptr(0.0),
			Maximum:     genai.Ptr(1.0),
			Description: "Confidence score of the sentiment analysis",
		},
		"urgency": {
			Type:        genai.TypeInteger,
			Minimum:     genai.Ptr(1.0),
			Maximum:     genai.Ptr(5.0),
			Description: "How urgent the customer's issue seems (1-5)",
		},
	},
	Required: []string{"mood", "confidence", "urgency"},
}

var entitiesSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type:        genai.TypeString,
		Description: "Banking entity or concept mentioned in the text",
	},
	MaxItems: genai.Ptr[int64](maxEntities),
}

var suggestionsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"responseText": {Type: genai.TypeString, Description: "Suggested response text"},
			"tone": {
				Type:        genai.TypeString,
				Enum:        tones,
				Description: "The tone of this response",
			},
			"rationale": {Type: genai.TypeString, Description: "Why this response might be appropriate"},
		},
		Required: []string{"responseText", "tone", "rationale"},
	},
	MinItems: genai.Ptr[int64](1),
	MaxItems: genai.Ptr[int64](maxSuggestions),
}

// AnalyzeSentiment classifies the mood and urgency of text.
func (g *Gemini) AnalyzeSentiment(ctx context.Context, text string) Sentiment {
	if isTrivial(text) {
		return TrivialSentiment
	}
	var out Sentiment
	prompt := fmt.Sprintf("Analyze the sentiment of this banking customer message: %q", text)
	if err := g.generateJSON(ctx, prompt, sentimentSchema, &out); err != nil {
		g.logger.Warn("insight_sentiment_failed", "error", err)
		return FallbackSentiment
	}
	if !validSentiment(out) {
		g.logger.Warn("insight_sentiment_invalid", "mood", out.Mood, "confidence", out.Confidence, "urgency", out.Urgency)
		return FallbackSentiment
	}
	return out
}

// ExtractEntities lists up to five banking terms mentioned in text.
func (g *Gemini) ExtractEntities(ctx context.Context, text string) []string {
	if isTrivial(text) {
		return []string{}
	}
	var out []string
	prompt := fmt.Sprintf("Extract banking-specific entities from this customer message: %q", text)
	if err := g.generateJSON(ctx, prompt, entitiesSchema, &out); err != nil {
		g.logger.Warn("insight_entities_failed", "error", err)
		return []string{}
	}
	return cleanEntities(out)
}

// ProcessDocumentImage reads banking details from the image at imageURL.
func (g *Gemini) ProcessDocumentImage(ctx context.Context, imageURL string) string {
	u, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		g.logger.Warn("insight_document_bad_url", "url", imageURL)
		return DocumentFallback
	}

	mimeType := mime.TypeByExtension(strings.ToLower(path.Ext(u.Path)))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText("Extract all relevant banking information from this document image."),
			genai.NewPartFromURI(u.String(), mimeType),
		}, genai.RoleUser),
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	resp, err := g.models.GenerateContent(callCtx, g.model, contents, g.baseConfig())
	if err != nil {
		g.logger.Warn("insight_document_failed", "error", err)
		return DocumentFallback
	}
	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return DocumentFallback
	}
	return text
}

// SuggestResponses proposes up to three replies to query.
func (g *Gemini) SuggestResponses(ctx context.Context, query string, history, entities []string) []Suggestion {
	if isTrivial(query) {
		return []Suggestion{GreetingSuggestion}
	}
	prompt := fmt.Sprintf("Generate 3 personalized response suggestions for a banking assistant.\n"+
		"Customer query: %q\n"+
		"Customer history summary: %q\n"+
		"Detected banking entities: %s",
		query, strings.Join(history, ", "), strings.Join(entities, ", "))

	var out []Suggestion
	if err := g.generateJSON(ctx, prompt, suggestionsSchema, &out); err != nil {
		g.logger.Warn("insight_suggestions_failed", "error", err)
		return []Suggestion{FallbackSuggestion}
	}
	cleaned := cleanSuggestions(out)
	if len(cleaned) == 0 {
		return []Suggestion{FallbackSuggestion}
	}
	return cleaned
}

func (g *Gemini) generateJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	cfg := g.baseConfig()
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = schema

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.models.GenerateContent(callCtx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}

func (g *Gemini) baseConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.temperature)),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}
	return cfg
}

func (g *Gemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

var _ Analyzer = (*Gemini)(nil)
