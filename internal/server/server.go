// Package server provides the HTTP API for vaultindex.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/notevault/vaultindex/internal/config"
	"github.com/notevault/vaultindex/internal/scheduler"
	"github.com/notevault/vaultindex/internal/store"
	"go.uber.org/zap"
)

// Server is the HTTP server for the vaultindex API.
type Server struct {
	store  *store.IndexStore
	sched  *scheduler.Scheduler
	cfg    *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(st *store.IndexStore, sched *scheduler.Scheduler, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		store:  st,
		sched:  sched,
		cfg:    cfg,
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/notes", s.handleIndexNote)
	r.Delete("/api/v1/notes", s.handleRemoveNote)
	r.Post("/api/v1/rescan", s.handleRescan)
	r.Post("/api/v1/flush", s.handleFlush)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
