package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bankchat/pkg/ai"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

func init() {
	ai.RegisterProvider(ai.Backend{
		Type:       ai.ProviderGroq,
		Name:       "Groq",
		Credential: ai.CredentialAPIKey,
	}, NewGroqProvider)

	ai.RegisterProvider(ai.Backend{
		Type:       ai.ProviderOpenAI,
		Name:       "OpenAI",
		Credential: ai.CredentialAPIKey,
	}, NewOpenAIProvider)
}

// CompatProvider talks to any endpoint implementing POST /chat/completions
// in the OpenAI wire format.
type CompatProvider struct {
	name               string
	client             openai.Client
	defaultModel       string
	defaultTemperature float64
	defaultMaxTokens   int
}

// NewGroqProvider creates the Groq provider.
func NewGroqProvider(cfg ai.ProviderConfig) (ai.Provider, error) {
	return newCompatProvider(string(ai.ProviderGroq), cfg)
}

// NewOpenAIProvider creates the OpenAI provider.
func NewOpenAIProvider(cfg ai.ProviderConfig) (ai.Provider, error) {
	return newCompatProvider(string(ai.ProviderOpenAI), cfg)
}

func newCompatProvider(name string, cfg ai.ProviderConfig) (*CompatProvider, error) {
	settings := cfg.Settings
	if strings.TrimSpace(cfg.APIKey) == "" {
		slog.Debug("compat_provider_missing_key", "provider", name)
		return nil, fmt.Errorf("%s: %w", name, ai.ErrMissingCredentials)
	}
	if strings.TrimSpace(settings.APIURL) == "" {
		return nil, fmt.Errorf("%s api_url is required", name)
	}
	if strings.TrimSpace(settings.Model) == "" {
		return nil, fmt.Errorf("%s model is required", name)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Zero timeout leaves the transport default in place.
		httpClient = &http.Client{Timeout: time.Duration(settings.APITimeoutSeconds) * time.Second}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(settings.APIURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
		option.WithMiddleware(captureResponse),
	)

	slog.Debug("compat_provider_ready",
		"provider", name,
		"api_url", settings.APIURL,
		"model", settings.Model,
		"timeout_seconds", settings.APITimeoutSeconds,
	)
	return &CompatProvider{
		name:               name,
		client:             client,
		defaultModel:       settings.Model,
		defaultTemperature: settings.Temperature,
		defaultMaxTokens:   settings.MaxTokens,
	}, nil
}

// CreateChatCompletion sends a non-streaming chat completion request.
func (p *CompatProvider) CreateChatCompletion(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	params, err := p.buildChatParams(req)
	if err != nil {
		return ai.ChatResponse{}, err
	}

	slog.Debug("compat_chat_request",
		"provider", p.name,
		"model", string(params.Model),
		"message_count", len(req.Messages),
	)

	capture := &responseCapture{}
	resp, err := p.client.Chat.Completions.New(withCapture(ctx, capture), params)
	if err != nil {
		if capture.status != 0 {
			return ai.ChatResponse{}, &ai.APIError{
				Provider:   p.name,
				StatusCode: capture.status,
				Body:       capture.body,
				Err:        err,
			}
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return ai.ChatResponse{}, &ai.APIError{
				Provider:   p.name,
				StatusCode: apiErr.StatusCode,
				Body:       []byte(apiErr.RawJSON()),
				Err:        err,
			}
		}
		return ai.ChatResponse{}, fmt.Errorf("%s request failed: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return ai.ChatResponse{}, &ai.APIError{
			Provider:   p.name,
			StatusCode: capture.status,
			Body:       capture.body,
			Err:        ai.ErrEmptyResponse,
		}
	}

	return ai.ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}

func (p *CompatProvider) buildChatParams(req ai.ChatRequest) (openai.ChatCompletionNewParams, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.defaultModel
	}
	if strings.TrimSpace(model) == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("messages are required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		param, err := toChatMessageParam(msg)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, param)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	temperature := p.defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	params.Temperature = openai.Float(temperature)

	maxTokens := p.defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	return params, nil
}

func toChatMessageParam(msg ai.Message) (openai.ChatCompletionMessageParamUnion, error) {
	role := strings.ToLower(strings.TrimSpace(msg.Role))
	switch role {
	case ai.RoleSystem:
		return openai.SystemMessage(msg.Content), nil
	case ai.RoleUser:
		return openai.UserMessage(msg.Content), nil
	case ai.RoleAssistant:
		return openai.AssistantMessage(msg.Content), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported role: %s", msg.Role)
	}
}

// responseCapture records the raw status and body the SDK saw so that error
// details can be passed through verbatim.
type responseCapture struct {
	status int
	body   []byte
}

type captureKey struct{}

func withCapture(ctx context.Context, c *responseCapture) context.Context {
	return context.WithValue(ctx, captureKey{}, c)
}

func captureResponse(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	resp, err := next(req)
	c, ok := req.Context().Value(captureKey{}).(*responseCapture)
	if !ok || resp == nil || resp.Body == nil {
		return resp, err
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	c.status = resp.StatusCode
	c.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err == nil && readErr != nil {
		err = readErr
	}
	return resp, err
}

// Ensure interface compliance
var _ ai.Provider = (*CompatProvider)(nil)
