package transport

import (
	"log/slog"
	"net/http"

	"github.com/ganot/hourbank/internal/app"
	"github.com/ganot/hourbank/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configures the HTTP server.
type Options struct {
	Logger *slog.Logger
	// Auth authenticates /api/v1 requests. Nil trusts the X-Actor-Id header.
	Auth func(http.Handler) http.Handler
	// MCP is mounted at /mcp when set.
	MCP http.Handler
	// Metrics instruments every request and is served at MetricsPath when set.
	Metrics     *metrics.Metrics
	MetricsPath string
}

// Server wires HTTP handlers.
type Server struct {
	services app.Services
	logger   *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(services app.Services, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{services: services, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.HTTPMiddleware)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, opts.Metrics.Handler())
	}

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	auth := opts.Auth
	if auth == nil {
		auth = HeaderActorMiddleware
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", srv.handleCreateProject)
			r.Get("/", srv.handleListProjects)
			r.Post("/expire-overdue", srv.handleExpireOverdue)
			r.Get("/near-deadline", srv.handleNearDeadline)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", srv.handleGetProject)
				r.Patch("/", srv.handleRenameProject)
				r.Delete("/", srv.handleDeleteProject)

				r.Post("/status", srv.handleTransition)
				r.Get("/transitions", srv.handleValidTransitions)
				r.Get("/history", srv.handleHistory)
				r.Get("/acceptance", srv.handleAcceptance)
				r.Get("/activity", srv.handleActivity)

				r.Post("/hours", srv.handleConsumeRelease)
				r.Post("/hours/extend", srv.handleExtend)
				r.Post("/hours/adjust", srv.handleAdjust)
				r.Get("/hours/transactions", srv.handleTransactions)
				r.Get("/hours/verify", srv.handleVerifyLedger)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
