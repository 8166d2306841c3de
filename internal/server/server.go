package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/app"
)

// Server owns the HTTP listener for the report API.
type Server struct {
	app    *app.App
	addr   string
	server *http.Server
}

// New builds the server from the app's config. Write timeout stays at 15s:
// every pipeline endpoint answers immediately (generation runs async), so
// nothing holds a response open.
func New(application *app.App) *Server {
	s := &Server{
		app:  application,
		addr: fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port),
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.withMiddleware(s.setupRoutes()),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.app.Logger.Info().
		Str("address", s.addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
