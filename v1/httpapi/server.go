package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tenantdesk/platform/v1/logger"
)

// Server runs the API handler on the configured address.
type Server struct {
	cfg    Config
	log    logger.Logger
	server *http.Server
}

// NewServer prepares a server; Start begins listening.
func NewServer(cfg Config, handler http.Handler, log logger.Logger) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg: cfg,
		log: log,
		server: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background. Bind errors are
// returned; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.log.Info("Starting HTTP server", nil, map[string]interface{}{
		"address": ln.Addr().String(),
	})
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped unexpectedly", err, nil)
		}
	}()
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests, at
// most ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("Shutting down HTTP server", nil, nil)
	return s.server.Shutdown(ctx)
}
