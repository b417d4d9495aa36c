package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/connections"
	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "notification-service"

// Sender runs a fan-out. *fanout.Engine satisfies it.
type Sender interface {
	SendNotification(ctx context.Context, req fanout.Request) fanout.Result
}

// MetricsResponse is the body of GET /api/notifications/metrics.
type MetricsResponse struct {
	connections.Stats
	Timestamp int64 `json:"timestamp"`
}

// HealthResponse is the body of GET /api/notifications/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// ConnectionsResponse is the body of GET /api/notifications/connections.
type ConnectionsResponse struct {
	Count       int                 `json:"count"`
	Connections []fanout.Connection `json:"connections"`
}

// Handlers implements the notification HTTP endpoints.
type Handlers struct {
	sender  Sender
	source  fanout.ConnectionSource
	version string
	now     func() time.Time
}

// HandlersOption configures Handlers.
type HandlersOption func(*Handlers)

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) HandlersOption {
	return func(h *Handlers) {
		if v != "" {
			h.version = v
		}
	}
}

// WithClock replaces time.Now for response timestamps.
func WithClock(now func() time.Time) HandlersOption {
	return func(h *Handlers) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandlers creates the endpoint handlers.
func NewHandlers(sender Sender, source fanout.ConnectionSource, opts ...HandlersOption) *Handlers {
	h := &Handlers{
		sender:  sender,
		source:  source,
		version: "1.0.0",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Send runs a fan-out. Delivery failures are reported in the body with status 200.
func (h *Handlers) Send(r *http.Request, req fanout.Request) Response {
	if h.sender == nil {
		return JSONError(ErrServiceUnavailable)
	}
	return JSON(h.sender.SendNotification(r.Context(), req))
}

// Metrics reports connection counts grouped by role, team and department.
func (h *Handlers) Metrics(r *http.Request, _ struct{}) Response {
	conns, err := h.connections(r.Context())
	if err != nil {
		return JSONError(err)
	}
	return JSON(MetricsResponse{
		Stats:     connections.ComputeStats(conns),
		Timestamp: h.now().Unix(),
	})
}

// Health reports liveness together with the service version.
func (h *Handlers) Health(_ *http.Request, _ struct{}) Response {
	return JSON(HealthResponse{
		Status:    "UP",
		Service:   ServiceName,
		Version:   h.version,
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Connections lists every stored connection record.
func (h *Handlers) Connections(r *http.Request, _ struct{}) Response {
	conns, err := h.connections(r.Context())
	if err != nil {
		return JSONError(err)
	}
	return JSON(ConnectionsResponse{Count: len(conns), Connections: conns})
}

func (h *Handlers) connections(ctx context.Context) ([]fanout.Connection, error) {
	if h.source == nil {
		return nil, ErrServiceUnavailable
	}
	conns, err := h.source.All(ctx)
	if err != nil {
		return nil, err
	}
	if conns == nil {
		conns = []fanout.Connection{}
	}
	return conns, nil
}
