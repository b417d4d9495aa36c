package httpserver

import "time"

// Config is the env-driven server configuration.
type Config struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`              // Addr is the listen address.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"` // ReadHeaderTimeout bounds reading request headers.
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`        // ReadTimeout bounds reading the whole request.
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`       // WriteTimeout bounds writing the response; a fan-out must finish within it.
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`       // IdleTimeout bounds keep-alive idle time.
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`    // ShutdownTimeout is the grace period for in-flight requests.
}

// NewFromConfig creates a Server from cfg. Zero values keep the defaults and
// explicit options are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 6+len(opts))
	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	for _, d := range []struct {
		v   time.Duration
		opt func(time.Duration) Option
	}{
		{cfg.ReadHeaderTimeout, WithReadHeaderTimeout},
		{cfg.ReadTimeout, WithReadTimeout},
		{cfg.WriteTimeout, WithWriteTimeout},
		{cfg.IdleTimeout, WithIdleTimeout},
		{cfg.ShutdownTimeout, WithShutdownTimeout},
	} {
		if d.v > 0 {
			configOpts = append(configOpts, d.opt(d.v))
		}
	}
	return New(append(configOpts, opts...)...)
}
