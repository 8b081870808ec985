// Package httpapi serves the task and sort operations over HTTP with a chi
// router. Request and response bodies are JSON.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/valter-silva-au/gtd-brain/internal/core"
)

// Options configures a Server.
type Options struct {
	Addr string
	// Location interprets answer datetimes without a zone. Defaults to UTC.
	Location *time.Location
	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the gtd HTTP API server.
type Server struct {
	httpServer *http.Server
	tasks      core.TaskManager
	sorter     core.SortService
	loc        *time.Location
	logger     *slog.Logger
}

// NewServer creates a Server routing to tasks and sorter.
func NewServer(tasks core.TaskManager, sorter core.SortService, opts Options) *Server {
	s := &Server{
		tasks:  tasks,
		sorter: sorter,
		loc:    opts.Location,
		logger: opts.Logger,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(allowAnyOrigin)

	r.Get("/health", s.handleHealth)

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", s.handleCreateTask)
		r.Get("/", s.handleListTasks)
		r.Get("/{taskID}", s.handleGetTask)
		r.Post("/{taskID}/sort", s.handleSortTask)
		r.Post("/{taskID}/complete", s.handleCompleteTask)
		r.Post("/{taskID}/sessions", s.handleStartSession)
	})

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Post("/answer", s.handleAnswer)
		r.Post("/back", s.handleBack)
		r.Delete("/", s.handleAbandon)
	})

	r.Route("/stats", func(r chi.Router) {
		r.Get("/weekly", s.handleWeeklyStats)
		r.Get("/motivation", s.handleMotivation)
		r.Get("/progress", s.handleProgress)
	})
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and blocks until the server is
// shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("gtd api listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// logRequests logs one line per request with its status and latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// allowAnyOrigin lets browser front ends on other origins call the API.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
