package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Server. Options panic on invalid values.
type Option func(*options)

// WithAddr sets the listen address. Defaults to ":8080".
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty addr")
	}
	return func(o *options) { o.addr = addr }
}

// WithReadTimeout sets http.Server.ReadTimeout.
func WithReadTimeout(d time.Duration) Option {
	mustPositive("read timeout", d)
	return func(o *options) { o.readTimeout = d }
}

// WithWriteTimeout sets http.Server.WriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	mustPositive("write timeout", d)
	return func(o *options) { o.writeTimeout = d }
}

// WithIdleTimeout sets http.Server.IdleTimeout.
func WithIdleTimeout(d time.Duration) Option {
	mustPositive("idle timeout", d)
	return func(o *options) { o.idleTimeout = d }
}

// WithShutdownTimeout bounds graceful shutdown. Defaults to 5s.
func WithShutdownTimeout(d time.Duration) Option {
	mustPositive("shutdown timeout", d)
	return func(o *options) { o.shutdownTimeout = d }
}

// WithServer runs srv instead of a fresh http.Server. Its Handler is
// replaced; address and timeouts already set on it are kept.
func WithServer(srv *http.Server) Option {
	if srv == nil {
		panic("httpserver: nil server")
	}
	return func(o *options) { o.server = srv }
}

// WithLogger sets the logger passed to hooks and used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStartHook runs h once the listener is open.
func WithStartHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver: nil start hook")
	}
	return func(o *options) { o.startHooks = append(o.startHooks, h) }
}

// WithStopHook runs h after shutdown completes.
func WithStopHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver: nil stop hook")
	}
	return func(o *options) { o.stopHooks = append(o.stopHooks, h) }
}

func mustPositive(name string, d time.Duration) {
	if d <= 0 {
		panic("httpserver: " + name + " must be positive")
	}
}
