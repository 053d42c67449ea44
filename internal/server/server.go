package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/marketlens/internal/app"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
	// writeTimeout bounds a whole response; a full analysis chains many model and provider calls
	writeTimeout = 10 * time.Minute
)

// Server serves the MarketLens HTTP API
type Server struct {
	app     *app.App
	handler http.Handler
	http    *http.Server
}

// New builds the route table and wraps it in middleware.
// Request contexts derive from the app context, so closing the app cancels in-flight analyses.
func New(application *app.App) *Server {
	s := &Server{app: application}
	s.handler = s.withMiddleware(s.setupRoutes())

	s.http = &http.Server{
		Addr:              net.JoinHostPort(application.Config.Server.Host, strconv.Itoa(application.Config.Server.Port)),
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return application.Context()
		},
	}

	return s
}

// Handler returns the routed and wrapped handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the configured listen address
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start listens and serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.app.Logger.Info().Str("address", s.http.Addr).Msg("MarketLens API listening")

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("serve %s: %w", s.http.Addr, err)
}

// Shutdown stops accepting connections and waits for active requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	start := time.Now()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.app.Logger.Info().Dur("duration", time.Since(start)).Msg("MarketLens API stopped")
	return nil
}
