package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"bankchat/pkg/ai"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

func init() {
	ai.RegisterProvider(ai.Backend{
		Type:       ai.ProviderBedrock,
		Name:       "AWS Bedrock",
		Credential: ai.CredentialAWSChain,
	}, NewBedrockProvider)
}

type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

var loadAWSConfig = func(ctx context.Context, region string, httpClient *http.Client) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if httpClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(httpClient))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

var newBedrockClient = func(cfg aws.Config) bedrockInvoker {
	return bedrockruntime.NewFromConfig(cfg)
}

// resolveAWSCredentials fails with ai.ErrMissingCredentials when the default
// chain yields nothing, so a request is never attempted without credentials.
func resolveAWSCredentials(ctx context.Context, cfg aws.Config) error {
	if cfg.Credentials == nil {
		return fmt.Errorf("%w: no AWS credential provider", ai.ErrMissingCredentials)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ai.ErrMissingCredentials, err)
	}
	if !creds.HasKeys() {
		return fmt.Errorf("%w: AWS credentials are empty", ai.ErrMissingCredentials)
	}
	return nil
}

// BedrockProvider implements the Provider interface with InvokeModel and the
// Llama 3 prompt format. Credentials come from the default AWS chain.
type BedrockProvider struct {
	client             bedrockInvoker
	defaultModel       string
	defaultTemperature float64
	defaultMaxTokens   int
}

type llamaRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len,omitempty"`
	Temperature float64 `json:"temperature"`
}

type llamaResponse struct {
	Generation string `json:"generation"`
	StopReason string `json:"stop_reason"`
}

// NewBedrockProvider creates a Bedrock provider from config.
func NewBedrockProvider(cfg ai.ProviderConfig) (ai.Provider, error) {
	settings := cfg.Settings
	model := strings.TrimSpace(settings.Model)
	if model == "" {
		return nil, fmt.Errorf("bedrock model is required")
	}
	region := strings.TrimSpace(settings.Region)
	if region == "" {
		return nil, fmt.Errorf("bedrock region is required")
	}

	ctx := context.Background()
	awsCfg, err := loadAWSConfig(ctx, region, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if err := resolveAWSCredentials(ctx, awsCfg); err != nil {
		return nil, err
	}
	client := newBedrockClient(awsCfg)

	slog.Debug("bedrock_provider_ready", "model", model, "region", region)
	return &BedrockProvider{
		client:             client,
		defaultModel:       model,
		defaultTemperature: settings.Temperature,
		defaultMaxTokens:   settings.MaxTokens,
	}, nil
}

// CreateChatCompletion renders the conversation as a Llama 3 prompt and
// invokes the model once.
func (p *BedrockProvider) CreateChatCompletion(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return ai.ChatResponse{}, fmt.Errorf("messages are required")
	}
	prompt, err := llama3Prompt(req.Messages)
	if err != nil {
		return ai.ChatResponse{}, err
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.defaultModel
	}
	body := llamaRequest{Prompt: prompt, Temperature: p.defaultTemperature, MaxGenLen: p.defaultMaxTokens}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		body.MaxGenLen = *req.MaxTokens
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return ai.ChatResponse{}, fmt.Errorf("encode bedrock request: %w", err)
	}

	slog.Debug("bedrock_chat_request", "model", model, "message_count", len(req.Messages))
	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        payload,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			return ai.ChatResponse{}, &ai.APIError{
				Provider:   string(ai.ProviderBedrock),
				StatusCode: respErr.HTTPStatusCode(),
				Body:       bedrockErrorBody(err),
				Err:        err,
			}
		}
		return ai.ChatResponse{}, fmt.Errorf("bedrock request failed: %w", err)
	}

	var resp llamaResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return ai.ChatResponse{}, &ai.APIError{
			Provider:   string(ai.ProviderBedrock),
			StatusCode: http.StatusOK,
			Body:       out.Body,
			Err:        fmt.Errorf("decode bedrock response: %w", err),
		}
	}
	content := strings.TrimSpace(resp.Generation)
	if content == "" {
		return ai.ChatResponse{}, &ai.APIError{
			Provider:   string(ai.ProviderBedrock),
			StatusCode: http.StatusOK,
			Body:       out.Body,
			Err:        ai.ErrEmptyResponse,
		}
	}

	return ai.ChatResponse{Content: content, Model: model}, nil
}

func llama3Prompt(messages []ai.Message) (string, error) {
	var b strings.Builder
	b.WriteString("<|begin_of_text|>")
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		switch role {
		case ai.RoleSystem, ai.RoleUser, ai.RoleAssistant:
		default:
			return "", fmt.Errorf("unsupported role: %s", msg.Role)
		}
		b.WriteString("<|start_header_id|>")
		b.WriteString(role)
		b.WriteString("<|end_header_id|>\n\n")
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("<|eot_id|>")
	}
	b.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
	return b.String(), nil
}

// bedrockErrorBody rebuilds a JSON error document, since the SDK has already
// consumed the response body by the time the error surfaces.
func bedrockErrorBody(err error) []byte {
	doc := map[string]string{"message": err.Error()}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		doc["code"] = apiErr.ErrorCode()
		doc["message"] = apiErr.ErrorMessage()
	}
	data, _ := json.Marshal(map[string]any{"error": doc})
	return data
}

var _ ai.Provider = (*BedrockProvider)(nil)
