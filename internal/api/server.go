// Package api is the HTTP boundary (A2): it shapes the sandbox
// service's operations onto the JSON/HTTP route tree spec'd for
// external clients, authenticates requests, and maps the service's
// error taxonomy onto HTTP status codes.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opensandbox/control-plane/internal/authstore"
	"github.com/opensandbox/control-plane/internal/sandboxsvc"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// Server is the HTTP API server fronting the sandbox service.
type Server struct {
	cfg            ServerConfig
	router         *chi.Mux
	svc            *sandboxsvc.Service
	authStore      *authstore.Store
	authMiddleware *AuthMiddleware
}

// NewServer wires the sandbox service and API-key store into a router.
func NewServer(cfg ServerConfig, svc *sandboxsvc.Service, authStore *authstore.Store) *Server {
	s := &Server{
		cfg:            cfg,
		svc:            svc,
		authStore:      authStore,
		authMiddleware: NewAuthMiddleware(authStore),
	}
	s.setupRouter()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", apiKeyHeader, "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/v1/sandboxes", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(s.authMiddleware.Authenticate)

		r.Post("/", s.handleCreateSandbox)
		r.Get("/", s.handleListSandboxes)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSandbox)
			r.Delete("/", s.handleDeleteSandbox)
			r.Post("/pause", s.handlePauseSandbox)
			r.Post("/resume", s.handleResumeSandbox)
			r.Post("/renew", s.handleRenewSandbox)
			r.Get("/endpoint", s.handleGetEndpoint)
		})
	})

	s.router = r
}

// loggingMiddleware logs each request via slog, skipping health/ready
// checks to keep the liveness-probe traffic out of the log.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				return
			}
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
