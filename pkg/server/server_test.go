package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"bankchat/pkg/ai"
	_ "bankchat/pkg/ai/providers"
	"bankchat/pkg/config"
	"bankchat/pkg/faq"
	"bankchat/pkg/gateway"
	"bankchat/pkg/insight"

	"github.com/gin-gonic/gin"
)

const testKeyEnv = "BANKCHAT_TEST_SERVER_GROQ_KEY"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCompleter struct {
	reply   string
	err     error
	history []ai.Message
	panics  bool
}

func (s *stubCompleter) Complete(ctx context.Context, history []ai.Message) (string, error) {
	if s.panics {
		panic("boom")
	}
	s.history = history
	return s.reply, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

// newGatewayServer runs a real gateway against a fake Groq endpoint.
func newGatewayServer(t *testing.T, upstream http.HandlerFunc) (*Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(fake.Close)

	cfg := config.Default()
	cfg.Providers.Groq.APIURL = fake.URL
	cfg.Providers.Groq.APIKeyEnv = testKeyEnv
	cfg.Providers.Groq.APIKey = ""

	gw := gateway.New(cfg, gateway.WithLogger(discardLogger()))
	return New(gw, WithLogger(discardLogger())), &calls
}

func TestChatSuccess(t *testing.T) {
	c := &stubCompleter{reply: "Hello there."}
	s := New(c, WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat",
		`{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["role"] != "assistant" || body["content"] != "Hello there." {
		t.Fatalf("Unexpected body %v", body)
	}
	if len(c.history) != 1 || c.history[0].Content != "hi" {
		t.Fatalf("Unexpected history %+v", c.history)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("Expected request id header")
	}
}

func TestChatKeepsCallerRequestID(t *testing.T) {
	s := New(&stubCompleter{reply: "ok"}, WithLogger(discardLogger()))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("Expected caller request id, got %q", got)
	}
}

func TestChatMalformedBody(t *testing.T) {
	s := New(&stubCompleter{}, WithLogger(discardLogger()))

	for _, body := range []string{`{not json`, `{}`} {
		rec := do(t, s.Handler(), http.MethodPost, "/api/chat", body)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("body %q: expected 500, got %d", body, rec.Code)
		}
		if got := decode(t, rec)["error"]; got != msgUnexpected {
			t.Fatalf("body %q: unexpected error %v", body, got)
		}
	}
}

func TestChatPanicRecovered(t *testing.T) {
	s := New(&stubCompleter{panics: true}, WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"messages":[]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["error"] != msgUnexpected || body["details"] != "boom" {
		t.Fatalf("Unexpected body %v", body)
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantDetail string
	}{
		{
			name:       "misconfigured",
			err:        &gateway.Error{Kind: gateway.KindMisconfigured, Reason: "Missing API key"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Configuration error: Missing API key",
		},
		{
			name:       "transport",
			err:        &gateway.Error{Kind: gateway.KindTransport, Err: errors.New("dial tcp: connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantError:  msgProviderFailed,
			wantDetail: `"dial tcp: connection refused"`,
		},
		{
			name:       "invalid",
			err:        &gateway.Error{Kind: gateway.KindInvalidRequest, Reason: `message 0 has unsupported role "system"`},
			wantStatus: http.StatusBadRequest,
			wantError:  msgInvalidRequest,
			wantDetail: `"message 0 has unsupported role \"system\""`,
		},
		{
			name:       "plain error",
			err:        errors.New("weird"),
			wantStatus: http.StatusInternalServerError,
			wantError:  msgUnexpected,
			wantDetail: `"weird"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&stubCompleter{err: tt.err}, WithLogger(discardLogger()))
			rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"messages":[]}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body struct {
				Error   string          `json:"error"`
				Details json.RawMessage `json:"details"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantError {
				t.Fatalf("Expected error %q, got %q", tt.wantError, body.Error)
			}
			if string(body.Details) != tt.wantDetail {
				t.Fatalf("Expected details %s, got %s", tt.wantDetail, body.Details)
			}
		})
	}
}

func TestChatMissingKeyEndToEnd(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	s, calls := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat",
		`{"messages":[{"role":"user","content":"What are RBC's mortgage rates?"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Configuration error: Missing API key"}` {
		t.Fatalf("Unexpected body %s", got)
	}
	if calls.Load() != 0 {
		t.Fatalf("Expected zero upstream calls, got %d", calls.Load())
	}
}

func TestChatInvalidSettingsEndToEnd(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")
	cfg := config.Default()
	cfg.Providers.Groq.APIURL = ""
	cfg.Providers.Groq.APIKeyEnv = testKeyEnv
	s := New(gateway.New(cfg, gateway.WithLogger(discardLogger())), WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat",
		`{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Configuration error: Invalid provider settings"}` {
		t.Fatalf("Unexpected body %s", got)
	}
}

func TestChatRateLimitedEndToEnd(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")
	upstreamBody := `{"error":{"message":"Rate limit reached","type":"tokens","code":"rate_limit_exceeded"}}`
	s, calls := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, upstreamBody)
	})

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat",
		`{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	var body struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != msgProviderFailed {
		t.Fatalf("Unexpected error %q", body.Error)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body.Details); err != nil {
		t.Fatalf("compact: %v", err)
	}
	if compact.String() != upstreamBody {
		t.Fatalf("Expected provider body in details, got %s", compact.String())
	}
	if calls.Load() != 1 {
		t.Fatalf("Expected exactly one upstream call, got %d", calls.Load())
	}
}

func TestChatMortgageAnswerEndToEnd(t *testing.T) {
	tests := []struct {
		name      string
		upstream  string
		want      string
		listLines int
	}{
		{
			name:      "indented list after intro line",
			upstream:  "Here are RBC's mortgage options:\n   1. Fixed rate mortgages   2. Variable rate mortgages\n   3. Open mortgages",
			want:      "Here are RBC's mortgage options:\n1. Fixed rate mortgages\n2. Variable rate mortgages\n3. Open mortgages",
			listLines: 3,
		},
		{
			name:      "list inline with intro",
			upstream:  "Rates vary. 1. Fixed rate mortgages 2. Variable rate mortgages",
			want:      "Rates vary. 1. Fixed rate mortgages\n2. Variable rate mortgages",
			listLines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKeyEnv, "test-key")
			s, _ := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"id":      "chatcmpl-1",
					"object":  "chat.completion",
					"created": 1,
					"model":   "llama3-8b-8192",
					"choices": []any{map[string]any{
						"index":         0,
						"finish_reason": "stop",
						"message": map[string]any{
							"role":    "assistant",
							"content": tt.upstream,
						},
					}},
				})
			})

			rec := do(t, s.Handler(), http.MethodPost, "/api/chat",
				`{"messages":[{"role":"user","content":"What are RBC's mortgage rates?"}]}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			got, _ := decode(t, rec)["content"].(string)
			if got != tt.want {
				t.Fatalf("Expected %q, got %q", tt.want, got)
			}

			items := 0
			for _, line := range strings.Split(got, "\n") {
				if strings.TrimLeft(line, " \t") != line {
					t.Fatalf("Expected no leading indentation, got line %q", line)
				}
				if numberedLine.MatchString(line) {
					items++
				}
			}
			if items != tt.listLines {
				t.Fatalf("Expected %d lines starting with a list marker, got %d in %q", tt.listLines, items, got)
			}
		})
	}
}

var numberedLine = regexp.MustCompile(`^\d+\. `)

func TestFAQs(t *testing.T) {
	entries := []faq.Entry{
		{Question: "How do I open an account?", Answer: "Visit a branch."},
		{Question: "What is a TFSA?", Answer: "A tax-free savings account."},
	}
	s := New(&stubCompleter{}, WithFAQs(entries), WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodGet, "/api/faqs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var all faqResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all.FAQs) != 2 {
		t.Fatalf("Expected 2 faqs, got %d", len(all.FAQs))
	}

	rec = do(t, s.Handler(), http.MethodGet, "/api/faqs?q=tfsa", "")
	var filtered faqResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &filtered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(filtered.FAQs) != 1 || filtered.FAQs[0].Question != "What is a TFSA?" {
		t.Fatalf("Unexpected filtered faqs %+v", filtered.FAQs)
	}

	rec = do(t, s.Handler(), http.MethodGet, "/api/faqs?q=bitcoin", "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"faqs":[]}` {
		t.Fatalf("Expected empty list, got %s", got)
	}
}

func TestInsightsFallback(t *testing.T) {
	s := New(&stubCompleter{}, WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodPost, "/api/insights", `{"text":"hey"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body insightResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Sentiment != insight.TrivialSentiment {
		t.Fatalf("Unexpected sentiment %+v", body.Sentiment)
	}
	if len(body.Entities) != 0 || body.Entities == nil {
		t.Fatalf("Expected empty entities, got %#v", body.Entities)
	}
	if len(body.Suggestions) != 1 || body.Suggestions[0] != insight.GreetingSuggestion {
		t.Fatalf("Unexpected suggestions %+v", body.Suggestions)
	}
	if body.Document != "" {
		t.Fatalf("Expected no document, got %q", body.Document)
	}
}

func TestInsightsDocumentOnly(t *testing.T) {
	s := New(&stubCompleter{}, WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodPost, "/api/insights", `{"imageUrl":"https://example.com/cheque.jpg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body insightResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Document != insight.DocumentFallback {
		t.Fatalf("Expected document fallback, got %q", body.Document)
	}
}

func TestInsightsRequiresInput(t *testing.T) {
	s := New(&stubCompleter{}, WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodPost, "/api/insights", `{"text":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := New(&stubCompleter{}, WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := decode(t, rec)["status"]; got != "ok" {
		t.Fatalf("Unexpected status %v", got)
	}
}

func TestIndexPage(t *testing.T) {
	s := New(&stubCompleter{}, WithLogger(discardLogger()))

	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("Expected html, got %q", ct)
	}
	page := rec.Body.String()
	for _, want := range []string{
		"How can I help you with your banking questions today?",
		"How do I set up direct deposit?",
		"Access your personal account information",
		"/api/chat",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
	if strings.Contains(page, "{{") {
		t.Fatal("Expected template to be fully rendered")
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(&stubCompleter{}, WithLogger(discardLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}
