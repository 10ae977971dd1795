package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bankchat/pkg/ai"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

func init() {
	ai.RegisterProvider(ai.Backend{
		Type:       ai.ProviderAzure,
		Name:       "Azure OpenAI",
		Credential: ai.CredentialAPIKey,
	}, NewAzureProvider)
}

// AzureProvider implements the Provider interface on an Azure OpenAI deployment.
type AzureProvider struct {
	client             *azopenai.Client
	deployment         string
	defaultTemperature float64
	defaultMaxTokens   int
}

// NewAzureProvider creates an Azure OpenAI provider from config.
func NewAzureProvider(cfg ai.ProviderConfig) (ai.Provider, error) {
	settings := cfg.Settings
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("azure: %w", ai.ErrMissingCredentials)
	}
	endpoint := strings.TrimSpace(settings.APIURL)
	if endpoint == "" {
		return nil, fmt.Errorf("azure api_url is required")
	}
	deployment := strings.TrimSpace(settings.Deployment)
	if deployment == "" {
		deployment = strings.TrimSpace(settings.Model)
	}
	if deployment == "" {
		return nil, fmt.Errorf("azure deployment is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(settings.APITimeoutSeconds) * time.Second}
	}

	opts := &azopenai.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry:     policy.RetryOptions{MaxRetries: -1},
			Transport: httpClient,
		},
	}
	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(cfg.APIKey), opts)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}

	slog.Debug("azure_provider_ready",
		"endpoint", endpoint,
		"deployment", deployment,
	)
	return &AzureProvider{
		client:             client,
		deployment:         deployment,
		defaultTemperature: settings.Temperature,
		defaultMaxTokens:   settings.MaxTokens,
	}, nil
}

// CreateChatCompletion sends a chat completion request to the deployment.
func (p *AzureProvider) CreateChatCompletion(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return ai.ChatResponse{}, fmt.Errorf("messages are required")
	}

	messages := make([]azopenai.ChatRequestMessageClassification, 0, len(req.Messages))
	for _, msg := range req.Messages {
		m, err := toAzureMessage(msg)
		if err != nil {
			return ai.ChatResponse{}, err
		}
		messages = append(messages, m)
	}

	deployment := p.deployment
	if model := strings.TrimSpace(req.Model); model != "" {
		deployment = model
	}

	temperature := p.defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := p.defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	opts := azopenai.ChatCompletionsOptions{
		Messages:       messages,
		DeploymentName: to.Ptr(deployment),
		Temperature:    to.Ptr(float32(temperature)),
	}
	if maxTokens > 0 {
		opts.MaxTokens = to.Ptr(int32(maxTokens))
	}

	slog.Debug("azure_chat_request",
		"deployment", deployment,
		"message_count", len(req.Messages),
	)
	resp, err := p.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return ai.ChatResponse{}, &ai.APIError{
				Provider:   string(ai.ProviderAzure),
				StatusCode: respErr.StatusCode,
				Body:       readResponseBody(respErr.RawResponse),
				Err:        err,
			}
		}
		return ai.ChatResponse{}, fmt.Errorf("azure request failed: %w", err)
	}

	for _, choice := range resp.Choices {
		if choice.Message != nil && choice.Message.Content != nil {
			return ai.ChatResponse{Content: *choice.Message.Content, Model: deployment}, nil
		}
	}

	return ai.ChatResponse{}, &ai.APIError{
		Provider:   string(ai.ProviderAzure),
		StatusCode: http.StatusOK,
		Err:        ai.ErrEmptyResponse,
	}
}

func toAzureMessage(msg ai.Message) (azopenai.ChatRequestMessageClassification, error) {
	switch strings.ToLower(strings.TrimSpace(msg.Role)) {
	case ai.RoleSystem:
		return &azopenai.ChatRequestSystemMessage{Content: to.Ptr(msg.Content)}, nil
	case ai.RoleUser:
		return &azopenai.ChatRequestUserMessage{Content: azopenai.NewChatRequestUserMessageContent(msg.Content)}, nil
	case ai.RoleAssistant:
		return &azopenai.ChatRequestAssistantMessage{Content: to.Ptr(msg.Content)}, nil
	default:
		return nil, fmt.Errorf("unsupported role: %s", msg.Role)
	}
}

func readResponseBody(resp *http.Response) []byte {
	if resp == nil || resp.Body == nil {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	return body
}

var _ ai.Provider = (*AzureProvider)(nil)
