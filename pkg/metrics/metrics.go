// Package metrics exposes Prometheus instruments for fan-out activity and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

const namespace = "notifyhub"

// Metrics implements fanout.Recorder and records RED metrics for the HTTP API.
type Metrics struct {
	deliveries     *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	recipients     prometheus.Histogram
	fanoutDuration prometheus.Histogram
	staleRemovals  *prometheus.CounterVec

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

var _ fanout.Recorder = (*Metrics)(nil)

// New registers every instrument on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Pushes to individual connections by outcome.",
		}, []string{"outcome"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Fan-out calls by final status.",
		}, []string{"status"}),
		recipients: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_recipients",
			Help:      "Eligible recipients per fan-out.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		fanoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_duration_seconds",
			Help:      "Time from snapshot to aggregated result.",
			Buckets:   prometheus.DefBuckets,
		}),
		staleRemovals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_removals_total",
			Help:      "Removals of connections reported gone.",
		}, []string{"result"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
		registerer: reg,
		gatherer:   reg,
	}
}

func (m *Metrics) DeliveryObserved(kind fanout.OutcomeKind) {
	m.deliveries.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ResultObserved(res fanout.Result, elapsed time.Duration) {
	m.notifications.WithLabelValues(string(res.Status)).Inc()
	m.recipients.Observe(float64(res.TotalRecipients))
	m.fanoutDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) StaleRemovalObserved(err error) {
	result := "removed"
	if err != nil {
		result = "error"
	}
	m.staleRemovals.WithLabelValues(result).Inc()
}

// TrackConnections exposes a gauge read from fn at scrape time.
func (m *Metrics) TrackConnections(fn func() int) {
	promauto.With(m.registerer).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gateway_connections",
		Help:      "WebSocket clients held by this instance.",
	}, func() float64 { return float64(fn()) })
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := strconv.Itoa(ww.Status())
		m.httpDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(path, r.Method, status).Inc()
	})
}
