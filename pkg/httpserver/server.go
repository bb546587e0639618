package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrymomot/reupload/pkg/logger"
)

type options struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	server          *http.Server
	logger          *slog.Logger
	startHooks      []func(*slog.Logger)
	stopHooks       []func(*slog.Logger)
}

// Server runs an http.Server until its context is cancelled or the process
// receives SIGINT or SIGTERM, then shuts it down gracefully.
type Server struct {
	opts options

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	stopOnce sync.Once
	stopErr  error
}

// New returns a Server. Without WithLogger it logs nothing.
func New(opts ...Option) *Server {
	o := options{
		addr:            ":8080",
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return &Server{opts: o}
}

// Addr returns the address the server listens on once Run has started,
// or the configured address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.addr
}

func (s *Server) prepare(handler http.Handler) (*http.Server, net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil, nil, fmt.Errorf("%w: already running", ErrStart)
	}

	srv := s.opts.server
	if srv == nil {
		srv = &http.Server{}
	}
	if srv.Addr == "" {
		srv.Addr = s.opts.addr
	}
	if srv.ReadTimeout == 0 {
		srv.ReadTimeout = s.opts.readTimeout
	}
	if srv.WriteTimeout == 0 {
		srv.WriteTimeout = s.opts.writeTimeout
	}
	if srv.IdleTimeout == 0 {
		srv.IdleTimeout = s.opts.idleTimeout
	}
	srv.Handler = handler

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, nil, errors.Join(ErrStart, err)
	}
	s.srv, s.listener = srv, ln
	return srv, ln, nil
}

// Run listens on the configured address and serves handler until ctx is
// done, a termination signal arrives or Shutdown is called. A nil handler
// answers 404 to everything. Listen failures wrap ErrStart.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	srv, ln, err := s.prepare(handler)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := s.opts.logger
	log.InfoContext(ctx, "http server started", logger.Component("httpserver"), slog.String("addr", ln.Addr().String()))
	for _, hook := range s.opts.startHooks {
		hook(log)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case <-sigCtx.Done():
		// The caller's context is done at this point, so shut down on a fresh one.
		_ = s.Shutdown(context.WithoutCancel(ctx))
		err = <-serveErr
	case err = <-serveErr:
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrStart, err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests, up to
// the shutdown timeout. Calling it more than once, or before Run, is a no-op.
// Failures wrap ErrShutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.stopErr = errors.Join(ErrShutdown, err)
		}
		for _, hook := range s.opts.stopHooks {
			hook(s.opts.logger)
		}
		s.opts.logger.InfoContext(ctx, "http server stopped", logger.Component("httpserver"))
	})
	return s.stopErr
}
