package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/requestid"
)

// MetricsExporter is the slice of *metrics.Metrics the router needs.
type MetricsExporter interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

type routerConfig struct {
	logger         *slog.Logger
	metrics        MetricsExporter
	tracerProvider trace.TracerProvider
	readiness      []func(context.Context) error
	wsPath         string
	ws             http.Handler
}

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

// WithLogger sets the logger used for failed requests.
func WithLogger(l *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request metrics and serves GET /metrics.
func WithMetrics(m MetricsExporter) RouterOption {
	return func(c *routerConfig) { c.metrics = m }
}

// WithTracerProvider wraps the router with otelhttp.
func WithTracerProvider(tp trace.TracerProvider) RouterOption {
	return func(c *routerConfig) { c.tracerProvider = tp }
}

// WithReadinessChecks sets the dependency checks behind /readyz.
func WithReadinessChecks(checks ...func(context.Context) error) RouterOption {
	return func(c *routerConfig) {
		c.readiness = append(c.readiness, checks...)
	}
}

// WithWebSocket mounts the WebSocket gateway at path.
func WithWebSocket(path string, h http.Handler) RouterOption {
	return func(c *routerConfig) {
		c.wsPath = path
		c.ws = h
	}
}

// CORSOptions returns the CORS policy applied to every route.
func CORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Amz-Date", "X-Api-Key", "X-Amz-Security-Token", "Cookie", requestid.Header},
		ExposedHeaders:   []string{requestid.Header},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// NewRouter builds the HTTP surface of the service.
func NewRouter(h *Handlers, opts ...RouterOption) http.Handler {
	cfg := &routerConfig{logger: logger.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	onError := LoggingErrorHandler(cfg.logger)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	if cfg.metrics != nil {
		r.Use(cfg.metrics.Middleware)
	}
	r.Use(cors.Handler(CORSOptions()))

	notFound := func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, NotFound(r.Method, r.URL.Path))
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Route("/api/notifications", func(r chi.Router) {
		r.Post("/send", Wrap(h.Send,
			WithBinders[fanout.Request](BindJSON(), Validate(NewValidator())),
			WithErrorHandler[fanout.Request](onError),
		))
		r.Get("/metrics", Wrap(h.Metrics, WithErrorHandler[struct{}](onError)))
		r.Get("/health", Wrap(h.Health, WithErrorHandler[struct{}](onError)))
		r.Get("/connections", Wrap(h.Connections, WithErrorHandler[struct{}](onError)))
	})

	r.Get("/healthz", httpserver.HealthCheckHandler(cfg.logger))
	r.Get("/readyz", httpserver.HealthCheckHandler(cfg.logger, cfg.readiness...))
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics.Handler())
	}
	if cfg.ws != nil && cfg.wsPath != "" {
		r.Method(http.MethodGet, cfg.wsPath, cfg.ws)
	}

	if cfg.tracerProvider == nil {
		return r
	}
	return otelhttp.NewHandler(r, "http.server",
		otelhttp.WithTracerProvider(cfg.tracerProvider),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
