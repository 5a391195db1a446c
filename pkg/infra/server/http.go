package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/kart-io/logger"

	httpopts "github.com/kart-io/mida-chat/pkg/options/server/http"
)

var _ Runnable = (*HTTPServer)(nil)

// HTTPServer serves an http.Handler (usually a *gin.Engine).
type HTTPServer struct {
	opts    *httpopts.Options
	server  *http.Server
	mu      sync.Mutex
	addr    net.Addr
	serveCh chan error
}

// NewHTTPServer creates an HTTP server for handler.
func NewHTTPServer(opts *httpopts.Options, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		opts: opts,
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      handler,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
	}
}

// Name implements Runnable.
func (s *HTTPServer) Name() string { return "http" }

// Start binds the listen address and serves in the background. Bind
// errors are returned synchronously.
func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.serveCh = make(chan error, 1)
	s.mu.Unlock()

	go func() {
		err := s.server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server exited", "addr", s.opts.Addr, "error", err)
			s.serveCh <- err
		}
		close(s.serveCh)
	}()
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address, or nil before Start.
func (s *HTTPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Done yields the serve error, if any, and is closed when serving ends.
func (s *HTTPServer) Done() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveCh
}
