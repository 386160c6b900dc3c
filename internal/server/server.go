// Package server wires the city providers, session store and estimator into
// an HTTP server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/api"
	"github.com/kartoza/match-odds/internal/cities"
	"github.com/kartoza/match-odds/internal/config"
	"github.com/kartoza/match-odds/internal/sessions"
)

// Server holds all the components for the web application
type Server struct {
	cfg          config.Config
	logger       *zap.Logger
	httpServer   *http.Server
	router       *mux.Router
	providers    *Providers
	sessionStore *sessions.Store
	api          *api.Handler
}

// New creates a new Server with all components initialized
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "server")),
		router: mux.NewRouter(),
	}

	estimator, err := LoadEstimator(cfg.StageTablePath)
	if err != nil {
		return nil, err
	}

	// City providers are optional; the funnel endpoints work without them
	providers, err := OpenProviders(ctx, cfg, logger)
	if err != nil {
		s.logger.Warn("city providers not available", zap.Error(err))
	} else {
		s.providers = providers
	}

	sessionStore, err := sessions.NewStore(cfg.DataDir)
	if err != nil {
		s.logger.Warn("session store not available", zap.Error(err))
	} else {
		s.sessionStore = sessionStore
	}

	var provider cities.Provider
	if s.providers != nil {
		provider = s.providers.Provider
	}
	s.api = api.NewHandler(provider, s.sessionStore, estimator, cfg, logger)

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(requestLogger(s.logger))

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	s.api.RegisterRoutes(apiRouter)

	// Data pack management routes
	apiRouter.HandleFunc("/datapack/status", s.handleDatapackStatus).Methods("GET")
	apiRouter.HandleFunc("/datapack/install", s.handleDatapackInstall).Methods("POST")
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("server listening", zap.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.providers != nil {
		if cerr := s.providers.Close(); cerr != nil {
			s.logger.Warn("closing city providers", zap.Error(cerr))
		}
	}
	return err
}
