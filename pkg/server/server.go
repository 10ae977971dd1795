// Package server exposes the chat gateway, the FAQ catalogue and the insight
// capability over HTTP, and serves the browser UI.
package server

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"bankchat/pkg/ai"
	"bankchat/pkg/faq"
	"bankchat/pkg/insight"

	"github.com/gin-gonic/gin"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Completer produces one assistant reply for a conversation.
// *gateway.Gateway implements it.
type Completer interface {
	Complete(ctx context.Context, history []ai.Message) (string, error)
}

// Server wires the HTTP routes to their collaborators.
type Server struct {
	completer Completer
	analyzer  insight.Analyzer
	faqs      []faq.Entry
	logger    *slog.Logger
	index     *template.Template
	engine    *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithAnalyzer enables POST /api/insights with a. The fallback analyzer is
// used otherwise.
func WithAnalyzer(a insight.Analyzer) Option {
	return func(s *Server) { s.analyzer = a }
}

// WithFAQs replaces the built-in FAQ catalogue.
func WithFAQs(entries []faq.Entry) Option {
	return func(s *Server) { s.faqs = entries }
}

// WithLogger sets the logger used for access and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New builds the gin engine and registers every route.
func New(completer Completer, opts ...Option) *Server {
	s := &Server{
		completer: completer,
		analyzer:  insight.Fallback{},
		logger:    slog.Default(),
		index:     indexTemplate,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.faqs == nil {
		s.faqs = faq.Builtin()
	}

	r := gin.New()
	r.Use(requestLogger(s.logger), recovery(s.logger))

	r.GET("/", s.handleIndex)
	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/faqs", s.handleFAQs)
		api.POST("/insights", s.handleInsights)
	}

	s.engine = r
	return s
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server_shutdown_start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server_shutdown_done")
	return nil
}
