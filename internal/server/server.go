// Package server hosts the step pipeline over HTTP.
//
// Clients upload a typez document once and then request rendering sets step
// by step. A step request names the steps the client displayed before it
// (?from=), since identifiers depend on that history; without it the server
// assumes the client walked every step in order.
//
// # Routes
//
//	POST   /documents                    upload, returns {id, steps}
//	GET    /documents                    list uploaded documents
//	GET    /documents/{id}               step list
//	GET    /documents/{id}/steps/{step}  rendering set (JSON)
//	GET    /documents/{id}/steps/{step}.svg|.png|.dot
//	DELETE /documents/{id}
//	GET    /metrics                      when a metrics handler is configured
//	GET    /healthz
//	GET    /version                      build information (JSON)
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/exprtrail/pkg/buildinfo"
	"github.com/matzehuels/exprtrail/pkg/pipeline"
	"github.com/matzehuels/exprtrail/pkg/store"
)

// DefaultMaxBodyBytes caps uploaded documents.
const DefaultMaxBodyBytes = 32 << 20

// Config wires a [Server].
type Config struct {
	Store  store.Store
	Runner *pipeline.Runner
	Logger *log.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// MaxBodyBytes caps uploads. Defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Detailed adds identifiers and slots to rendered diagrams.
	Detailed bool
}

// Server is the HTTP host. It implements http.Handler.
type Server struct {
	cfg    Config
	router chi.Router
}

// New builds the router. Store and Runner are required.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{cfg: cfg}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Server", buildinfo.UserAgent()))
	r.Use(requestLogger(cfg.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, buildinfo.Get())
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Get("/steps/{step}", s.handleStep)
		})
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
