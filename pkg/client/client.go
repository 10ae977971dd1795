// Package client talks to a bankchat server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bankchat/pkg/ai"
	"bankchat/pkg/faq"
)

const defaultTimeout = 2 * time.Minute

// Client calls the bankchat HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the server at baseURL. A nil httpClient gets a
// client with a generous timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Error is a non-2xx answer from the server.
type Error struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *Error) Error() string {
	if len(e.Details) > 0 && string(e.Details) != "null" {
		return fmt.Sprintf("server returned %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Chat sends history and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, history []ai.Message) (string, error) {
	if history == nil {
		history = []ai.Message{}
	}
	payload, err := json.Marshal(map[string]any{"messages": history})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	var out struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", bytes.NewReader(payload), &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// FAQs returns the catalogue entries matching query. An empty query returns
// every entry.
func (c *Client) FAQs(ctx context.Context, query string) ([]faq.Entry, error) {
	path := "/api/faqs"
	if q := strings.TrimSpace(query); q != "" {
		path += "?q=" + url.QueryEscape(q)
	}
	var out struct {
		FAQs []faq.Entry `json:"faqs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.FAQs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error   string          `json:"error"`
			Details json.RawMessage `json:"details"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Details = payload.Details
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
