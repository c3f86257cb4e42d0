// Package server provides the HTTP API for Omoide.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/omoide-dev/omoide/internal/cluster"
	"github.com/omoide-dev/omoide/internal/config"
	"github.com/omoide-dev/omoide/internal/search"
	"github.com/omoide-dev/omoide/internal/storage"
)

// Server is the HTTP server for the Omoide API.
type Server struct {
	engine    *search.Engine
	clusterer *cluster.Clusterer
	storage   storage.Storage
	config    *config.ServerConfig
	metrics   *Metrics
	registry  *prometheus.Registry
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	clusterer *cluster.Clusterer,
	store storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		engine:    engine,
		clusterer: clusterer,
		storage:   store,
		config:    cfg,
		metrics:   NewMetrics(registry),
		registry:  registry,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/people", s.handleListPeople)
	r.Post("/api/v1/people/merge", s.handleMergePeople)
	r.Post("/api/v1/people/{id}/label", s.handleLabelPerson)
	r.Get("/api/v1/people/{id}/images", s.handlePersonImages)
	r.Delete("/api/v1/people/{id}", s.handleDeletePerson)
	r.Post("/api/v1/cluster", s.handleCluster)
	r.Post("/api/v1/recluster", s.handleRecluster)
	r.Get("/api/v1/images", s.handleListImages)
	r.Get("/api/v1/images/{id}", s.handleGetImage)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
