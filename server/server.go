package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cgi"
	"sync"
	"time"

	"github.com/user/mcp-server-template/config"
	"github.com/user/mcp-server-template/engine"
	"github.com/user/mcp-server-template/logging"
	"github.com/user/mcp-server-template/tools"
)

type Server struct {
	config     *config.Config
	app        *App
	sessions   *engine.SessionStore
	httpServer *http.Server
	listener   net.Listener
	logger     logging.Logger
	mu         sync.RWMutex
}

// NewServer opens the session index and builds the App. A sessions
// directory that cannot be created is fatal here.
func NewServer(cfg *config.Config, logger logging.Logger, catalogue *tools.Catalogue) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	// one request per process: nothing could resume a stateful session
	if cfg.Server.Mode == "cgi" {
		copied := *cfg
		copied.MCP.Stateless = true
		cfg = &copied
	}

	sessions, err := engine.OpenSessionStore(cfg.SessionsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	app, err := NewApp(cfg, Options{
		Logger:    logger,
		Catalogue: catalogue,
		Sessions:  sessions,
	})
	if err != nil {
		sessions.Close()
		return nil, err
	}

	s := &Server{
		config:   cfg,
		app:      app,
		sessions: sessions,
		logger:   logger,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           app,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// App returns the request cycle the server drives.
func (s *Server) App() *App { return s.app }

// Sessions returns the session index.
func (s *Server) Sessions() *engine.SessionStore { return s.sessions }

func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	defer listener.Close()

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("server started", logging.Fields{
			"addr":     listener.Addr().String(),
			"endpoint": s.config.Server.Endpoint,
		})
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		if err != http.ErrServerClosed {
			return err
		}
	}

	return nil
}

// ServeCGI handles the single request described by the process environment.
func (s *Server) ServeCGI() error {
	return cgi.Serve(s.app)
}

func (s *Server) GetListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Server.ListenAddr
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions != nil {
		err := s.sessions.Close()
		s.sessions = nil
		return err
	}
	return nil
}

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)
