package proxy

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/zhengjr9/foundation-bridge/internal/adapter/openai"
	"github.com/zhengjr9/foundation-bridge/internal/config"
	apierrors "github.com/zhengjr9/foundation-bridge/internal/errors"
	"github.com/zhengjr9/foundation-bridge/internal/metrics"
)

// Server is the OpenAI-compatible HTTP server.
type Server struct {
	httpServer *http.Server
}

// New constructs a Server serving sess. m may be nil to disable metrics.
func New(cfg *config.Config, sess openai.Session, m *metrics.Metrics) *Server {
	oaHandler := openai.NewHandler(sess, cfg.ModelID, cfg.RequestTimeout, m)

	router := mux.NewRouter()
	// mux skips router.Use middleware for these two handlers.
	router.NotFoundHandler = withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteJSONError(w, http.StatusNotFound, "not found")
	}))
	router.MethodNotAllowedHandler = withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}))

	// OpenAI
	router.HandleFunc("/v1/models", oaHandler.ListModels).Methods(http.MethodGet)
	router.HandleFunc("/v1/chat/completions", oaHandler.ChatCompletions).Methods(http.MethodPost)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if m != nil && cfg.MetricsPath != "" {
		router.Handle(cfg.MetricsPath, m.Handler()).Methods(http.MethodGet)
	}

	router.Use(recoveryMiddleware, LoggingMiddleware)

	// Streams are bounded by the request timeout, not by WriteTimeout.
	writeTimeout := time.Duration(0)
	if cfg.RequestTimeout > 0 {
		writeTimeout = cfg.RequestTimeout + 10*time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func withMiddleware(h http.Handler) http.Handler {
	return recoveryMiddleware(LoggingMiddleware(h))
}

// Start begins listening and blocks until the server is stopped.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the underlying http.Handler (for use in tests with httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
