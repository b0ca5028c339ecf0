// Package web provides the HTTP API for employee records.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/ems/internal/config"
	"github.com/JonMunkholm/ems/internal/core"
	"github.com/JonMunkholm/ems/internal/logging"
	mw "github.com/JonMunkholm/ems/internal/web/middleware"
)

// uploadFormOverhead is allowed on top of the file size for multipart framing.
const uploadFormOverhead = 1 << 20

// Server is the HTTP server for the employee API.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	limiters []*mw.RateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.ClientInfo)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(newCompressor().Handler)
	s.router.Use(mw.SecurityHeaders(s.cfg.Security.EnableCSP))
}

// newCompressor compresses JSON and CSV responses with gzip, deflate or brotli.
func newCompressor() *middleware.Compressor {
	c := middleware.NewCompressor(5, "application/json", "text/csv", "text/html", "text/plain")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	auth := mw.APIKeyAuth(s.cfg.Security)

	s.router.Route("/api/employees", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			s.rateLimit(r, s.cfg.Rate.RequestsPerMinute)

			r.Get("/", s.handleListEmployees)
			r.Get("/search", s.handleSearchEmployees)
			r.Get("/export", s.handleExportEmployees)
			r.Get("/{id}", s.handleGetEmployee)

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Post("/", s.handleCreateEmployee)
				r.Put("/{id}", s.handleUpdateEmployee)
				r.Delete("/{id}", s.handleDeleteEmployee)
				r.Delete("/", s.handleDeleteAllEmployees)
			})
		})

		// Imports are bounded by the service's import timeout rather than
		// the request timeout.
		r.Group(func(r chi.Router) {
			s.rateLimit(r, s.cfg.Rate.UploadLimit)
			r.Use(auth)
			r.Post("/bulk-upload", s.handleBulkUpload)
		})
	})
}

func (s *Server) rateLimit(r chi.Router, perMinute int) {
	if !s.cfg.Rate.Enabled {
		return
	}
	rl := mw.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	r.Use(rl.Handler)
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and the rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	})
}

// writeJSON encodes v as JSON. Encoding errors are logged since the status
// is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
