package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures the HTTP server.
// Invalid values panic: a misconfigured server must prevent startup.
type Option func(*config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver.WithAddr: addr cannot be empty")
	}
	return func(c *config) { c.addr = addr }
}

func positive(name string, d time.Duration) {
	if d <= 0 {
		panic("httpserver." + name + ": duration must be > 0")
	}
}

// WithReadHeaderTimeout bounds reading request headers.
func WithReadHeaderTimeout(d time.Duration) Option {
	positive("WithReadHeaderTimeout", d)
	return func(c *config) { c.readHeaderTimeout = d }
}

// WithReadTimeout bounds reading the whole request.
func WithReadTimeout(d time.Duration) Option {
	positive("WithReadTimeout", d)
	return func(c *config) { c.readTimeout = d }
}

// WithWriteTimeout bounds writing the response.
func WithWriteTimeout(d time.Duration) Option {
	positive("WithWriteTimeout", d)
	return func(c *config) { c.writeTimeout = d }
}

// WithIdleTimeout bounds keep-alive idle time.
func WithIdleTimeout(d time.Duration) Option {
	positive("WithIdleTimeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout sets the grace period for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	positive("WithShutdownTimeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithServer uses srv instead of a fresh http.Server. Fields already set on
// srv take precedence over the options.
func WithServer(srv *http.Server) Option {
	if srv == nil {
		panic("httpserver.WithServer: nil server")
	}
	return func(c *config) { c.server = srv }
}

// WithLogger sets the server logger. Nil keeps the discarding default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithStartHook runs h right before the listener starts.
func WithStartHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver.WithStartHook: nil hook")
	}
	return func(c *config) { c.startHooks = append(c.startHooks, h) }
}

// WithStopHook runs h after graceful shutdown.
func WithStopHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver.WithStopHook: nil hook")
	}
	return func(c *config) { c.stopHooks = append(c.stopHooks, h) }
}
