// Package server exposes the orchestrator, tool registry and memory
// store over an HTTP JSON API.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/devguild/internal/config"
	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/notify"
	"github.com/kazz187/devguild/internal/orchestrator"
	"github.com/kazz187/devguild/internal/tool"
	"github.com/kazz187/devguild/pkg/cerr"
	"github.com/kazz187/devguild/pkg/clog"
)

type Server struct {
	server   *http.Server
	cfg      config.ServerConfig
	tracker  *Tracker
	orch     *orchestrator.Orchestrator
	registry *tool.Registry
	memory   *memory.Store
	subs     *notify.SubscriptionStore
	logger   *slog.Logger

	// baseCtx outlives individual requests; background tasks run on it.
	baseCtx context.Context
}

func NewServer(
	cfg config.ServerConfig,
	orch *orchestrator.Orchestrator,
	registry *tool.Registry,
	store *memory.Store,
	subs *notify.SubscriptionStore,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		orch:     orch,
		tracker:  NewTracker(orch, logger),
		registry: registry,
		memory:   store,
		subs:     subs,
		logger:   logger,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used
// as the base context for all incoming requests and for background
// task execution, so cancelling it also cancels running tasks.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.baseCtx = ctx

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", s.apiRouter())

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	s.logger.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) apiRouter() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.Post("/tasks", s.handleSubmitTask)
		r.Get("/tasks", s.handleListTasks)
		r.Get("/tasks/{taskID}", s.handleGetTask)
		r.Get("/tasks/{taskID}/transcript", s.handleGetTranscript)

		r.Get("/tools", s.handleListTools)
		r.Post("/tools/{name}", s.handleExecuteTool)

		r.Get("/memory/search", s.handleSearchMemory)
		r.Post("/memory", s.handleRemember)
		r.Delete("/memory/{key}", s.handleForget)

		r.Post("/notify/subscriptions", s.handleSubscribe)
		r.Delete("/notify/subscriptions", s.handleUnsubscribe)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})
	return r
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// apiKeyMiddleware rejects requests without the configured key. An
// empty key disables the check.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.cfg.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
