package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/volcengine/veadk-go/apps"
	"github.com/volcengine/veadk-go/apps/a2a_app"
	"google.golang.org/adk/agent"

	"github.com/zhengjr9/foundation-bridge/internal/a2a"
	"github.com/zhengjr9/foundation-bridge/internal/config"
	"github.com/zhengjr9/foundation-bridge/internal/engine"
	"github.com/zhengjr9/foundation-bridge/internal/metrics"
	"github.com/zhengjr9/foundation-bridge/internal/proxy"
	"github.com/zhengjr9/foundation-bridge/internal/session"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	slog.Info("starting foundation-bridge",
		"listen", cfg.ListenAddr,
		"engine", cfg.Engine,
		"model_id", cfg.ModelID,
		"a2a_enabled", cfg.A2AEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One engine and one session for the whole process.
	eng, err := engine.New(ctx, engine.Options{
		Backend: cfg.Engine,
		Gemini: engine.GeminiConfig{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			Project:  cfg.VertexProject,
			Location: cfg.VertexLocation,
		},
	})
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}
	sess := session.New(eng)

	srv := proxy.New(cfg, sess, metrics.New())
	proxyErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			proxyErr <- err
		}
	}()

	// Optionally serve the same session over A2A.
	a2aErr := make(chan error, 1)
	if cfg.A2AEnabled {
		sessionAgent, err := a2a.New(a2a.AgentConfig{
			Name:        cfg.AgentName,
			Description: cfg.AgentDesc,
			Session:     sess,
		})
		if err != nil {
			slog.Error("failed to create A2A agent", "error", err)
			os.Exit(1)
		}

		slog.Info("starting A2A server", "port", cfg.A2APort, "agent_name", cfg.AgentName)

		inner := a2a_app.NewAgentkitA2AServerApp(
			apps.DefaultApiConfig().SetPort(cfg.A2APort),
		)
		wrapped := &loggingApp{BasicApp: inner}

		go func() {
			if err := wrapped.Run(ctx, &apps.RunConfig{
				AgentLoader: agent.NewSingleLoader(sessionAgent),
			}); err != nil {
				a2aErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("proxy shutdown error", "error", err)
		}
	case err := <-proxyErr:
		slog.Error("proxy server error", "error", err)
		os.Exit(1)
	case err := <-a2aErr:
		slog.Error("A2A server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// loggingApp wraps a BasicApp so the A2A router logs requests the same way
// the OpenAI API does.
type loggingApp struct {
	apps.BasicApp
}

// Run overrides the embedded Run so that apps.Run receives the wrapper and
// calls our SetupRouters instead of the inner app's.
func (w *loggingApp) Run(ctx context.Context, config *apps.RunConfig) error {
	return apps.Run(ctx, config, w)
}

func (w *loggingApp) SetupRouters(router *mux.Router, config *apps.RunConfig) error {
	if err := w.BasicApp.SetupRouters(router, config); err != nil {
		return err
	}
	router.Use(proxy.LoggingMiddleware)
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
