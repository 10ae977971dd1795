package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"sync"

	"bankchat/pkg/ai"
	"bankchat/pkg/faq"
	"bankchat/pkg/gateway"
	"bankchat/pkg/insight"
	"bankchat/pkg/session"
	"bankchat/pkg/version"

	"github.com/gin-gonic/gin"
)

const (
	msgUnexpected     = "An unexpected error occurred"
	msgProviderFailed = "Failed to get response from provider"
	msgInvalidRequest = "Invalid request"
	msgConfigPrefix   = "Configuration error: "
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type chatRequest struct {
	Messages *[]ai.Message `json:"messages"`
}

type chatResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("chat_bad_body", "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgUnexpected, Details: err.Error()})
		return
	}
	if req.Messages == nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgUnexpected, Details: "messages is required"})
		return
	}

	reply, err := s.completer.Complete(c.Request.Context(), *req.Messages)
	if err != nil {
		status, body := chatError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, chatResponse{Role: ai.RoleAssistant, Content: reply})
}

// chatError maps a completion failure to its status and payload.
func chatError(err error) (int, errorResponse) {
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		return http.StatusInternalServerError, errorResponse{Error: msgUnexpected, Details: err.Error()}
	}
	switch gwErr.Kind {
	case gateway.KindMisconfigured:
		return http.StatusInternalServerError, errorResponse{Error: msgConfigPrefix + gwErr.Reason}
	case gateway.KindUpstream, gateway.KindTransport:
		return http.StatusInternalServerError, errorResponse{Error: msgProviderFailed, Details: gwErr.Details()}
	case gateway.KindInvalidRequest:
		return http.StatusBadRequest, errorResponse{Error: msgInvalidRequest, Details: gwErr.Details()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: msgUnexpected, Details: gwErr.Details()}
	}
}

type faqResponse struct {
	FAQs []faq.Entry `json:"faqs"`
}

func (s *Server) handleFAQs(c *gin.Context) {
	entries := faq.Search(s.faqs, c.Query("q"))
	if entries == nil {
		entries = []faq.Entry{}
	}
	c.JSON(http.StatusOK, faqResponse{FAQs: entries})
}

type insightRequest struct {
	Text     string   `json:"text"`
	History  []string `json:"history"`
	Entities []string `json:"entities"`
	ImageURL string   `json:"imageUrl"`
}

type insightResponse struct {
	Sentiment   insight.Sentiment    `json:"sentiment"`
	Entities    []string             `json:"entities"`
	Suggestions []insight.Suggestion `json:"suggestions"`
	Document    string               `json:"document,omitempty"`
}

func (s *Server) handleInsights(c *gin.Context) {
	var req insightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidRequest, Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.ImageURL) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidRequest, Details: "text or imageUrl is required"})
		return
	}

	ctx := c.Request.Context()
	var resp insightResponse
	entities := req.Entities

	var wg sync.WaitGroup
	if req.Text != "" {
		wg.Go(func() { resp.Sentiment = s.analyzer.AnalyzeSentiment(ctx, req.Text) })
		if entities == nil {
			entities = s.analyzer.ExtractEntities(ctx, req.Text)
		}
	}
	if req.ImageURL != "" {
		wg.Go(func() { resp.Document = s.analyzer.ProcessDocumentImage(ctx, req.ImageURL) })
	}
	if req.Text != "" {
		resp.Suggestions = s.analyzer.SuggestResponses(ctx, req.Text, req.History, entities)
	}
	wg.Wait()

	if entities == nil {
		entities = []string{}
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []insight.Suggestion{}
	}
	resp.Entities = entities
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Summary()})
}

type indexData struct {
	Greeting      string
	FallbackReply string
	ErrorBanner   string
	Suggestions   []string
	HelpIntro     string
	HelpCan       []string
	HelpCannot    []string
	FAQs          []faq.Entry
}

func (s *Server) handleIndex(c *gin.Context) {
	var buf bytes.Buffer
	err := s.index.Execute(&buf, indexData{
		Greeting:      session.Greeting,
		FallbackReply: session.FallbackReply,
		ErrorBanner:   session.ErrorBanner,
		Suggestions:   session.Suggestions,
		HelpIntro:     session.HelpIntro,
		HelpCan:       session.HelpCan,
		HelpCannot:    session.HelpCannot,
		FAQs:          s.faqs,
	})
	if err != nil {
		s.logger.Error("index_render_failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgUnexpected, Details: err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
