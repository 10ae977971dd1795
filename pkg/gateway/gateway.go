// Package gateway turns a conversation into one assistant reply: it puts the
// persona in front, calls the configured provider and tidies the answer.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bankchat/pkg/ai"
	"bankchat/pkg/config"
	"bankchat/pkg/format"
	"bankchat/pkg/logging"
)

// Gateway is stateless apart from its configuration and is safe for
// concurrent use.
type Gateway struct {
	cfg        config.Config
	registry   *ai.Registry
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRegistry swaps the provider registry, mainly for tests.
func WithRegistry(r *ai.Registry) Option {
	return func(g *Gateway) { g.registry = r }
}

// WithHTTPClient makes providers use client instead of building their own.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) { g.httpClient = client }
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New creates a Gateway for cfg.
func New(cfg config.Config, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		registry: ai.DefaultRegistry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete sends history, preceded by Persona, to the configured provider
// and returns the normalized reply. history holds only user and assistant
// turns; it may be empty. Every failure is an *Error.
func (g *Gateway) Complete(ctx context.Context, history []ai.Message) (string, error) {
	if err := validateHistory(history); err != nil {
		g.logger.Warn("gateway_invalid_request", "error", err)
		return "", err
	}

	providerType := ai.ProviderType(g.cfg.LLMProvider)
	settings := g.cfg.Active()

	provider, err := g.registry.Build(ai.ProviderConfig{
		Type:       providerType,
		Settings:   settings,
		APIKey:     settings.ResolveAPIKey(),
		HTTPClient: g.httpClient,
	})
	if err != nil {
		g.logger.Error("gateway_misconfigured", "provider", providerType, "error", err)
		return "", &Error{Kind: KindMisconfigured, Reason: g.misconfiguredReason(providerType, err), Err: err}
	}

	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, Persona)
	messages = append(messages, history...)

	temperature := settings.Temperature
	maxTokens := settings.MaxTokens
	req := ai.ChatRequest{
		Model:       settings.Model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	if g.logger.Enabled(ctx, logging.LevelTrace) {
		logging.Trace(ctx, g.logger, "gateway_prompt",
			"model", settings.Model,
			"messages_full", buildMessageDump(messages),
		)
	}
	g.logger.Info("gateway_request_start",
		"provider", providerType,
		"model", settings.Model,
		"message_count", len(messages),
	)

	start := time.Now()
	resp, err := provider.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *ai.APIError
		if errors.As(err, &apiErr) {
			g.logger.Error("gateway_upstream_error",
				"provider", providerType,
				"status", apiErr.StatusCode,
				"error", err,
			)
			return "", &Error{
				Kind:   KindUpstream,
				Status: apiErr.StatusCode,
				Body:   apiErr.Body,
				Reason: "provider returned an error",
				Err:    err,
			}
		}
		g.logger.Error("gateway_transport_error", "provider", providerType, "error", err)
		return "", &Error{Kind: KindTransport, Reason: "provider unreachable", Err: err}
	}

	reply := format.Normalize(resp.Content)
	g.logger.Info("gateway_request_done",
		"provider", providerType,
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"reply_chars", len(reply),
	)
	return reply, nil
}

// Reasons shown to callers for KindMisconfigured. The underlying error is
// kept in Error.Err and the log only.
const (
	ReasonMissingKey      = "Missing API key"
	ReasonMissingAWS      = "Missing AWS credentials"
	ReasonInvalidProvider = "Invalid provider settings"
)

func (g *Gateway) misconfiguredReason(t ai.ProviderType, err error) string {
	if !errors.Is(err, ai.ErrMissingCredentials) {
		return ReasonInvalidProvider
	}
	if b, ok := g.registry.Backend(t); ok && b.Credential == ai.CredentialAWSChain {
		return ReasonMissingAWS
	}
	return ReasonMissingKey
}

func validateHistory(history []ai.Message) error {
	for i, msg := range history {
		switch msg.Role {
		case ai.RoleUser, ai.RoleAssistant:
		default:
			return &Error{
				Kind:   KindInvalidRequest,
				Reason: fmt.Sprintf("message %d has unsupported role %q", i, msg.Role),
			}
		}
	}
	return nil
}

func buildMessageDump(messages []ai.Message) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}
