package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Registry is the connection store as seen by the gateway.
type Registry interface {
	Put(ctx context.Context, conn fanout.Connection) error
	Remove(ctx context.Context, connectionID string) error
	Touch(ctx context.Context, connectionID string, at time.Time) error
	SetTopics(ctx context.Context, connectionID string, topics []string) error
}

// Gateway terminates WebSocket clients, keeps the registry in sync with their lifecycle,
// and is the fanout.PushChannel for sockets it holds.
//
// A connection ID unknown to this gateway is reported as gone, so the registry it
// shares with the dispatcher must only contain this instance's sockets.
type Gateway struct {
	cfg      Config
	registry Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Option configures a Gateway.
type Option func(*Gateway)

func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the source of connectedAt and lastSeen timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithIDGenerator overrides connection ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(g *Gateway) {
		if gen != nil {
			g.newID = gen
		}
	}
}

// New creates a gateway that records clients in registry.
func New(cfg Config, registry Registry, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		registry: registry,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
		clients:  make(map[string]*client),
	}
	g.upgrader = websocket.Upgrader{CheckOrigin: g.checkOrigin}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logger.Component("gateway"))
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(g.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

// ServeHTTP upgrades the request and runs the socket until it closes.
// Query parameters: userId, roles, teams (comma separated), department.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	closed := g.closed
	g.mu.RUnlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		g.logger.LogAttrs(r.Context(), slog.LevelWarn, "WebSocket upgrade failed", logger.Error(err))
		return
	}

	now := g.now().Unix()
	q := r.URL.Query()
	record := fanout.Connection{
		ConnectionID:     g.newID(),
		UserID:           q.Get("userId"),
		Roles:            splitList(q.Get("roles")),
		Teams:            splitList(q.Get("teams")),
		Department:       q.Get("department"),
		ConnectedAt:      now,
		LastSeen:         now,
		SubscribedTopics: slices.Clone(fanout.DefaultTopics),
	}.WithDefaults()

	c := &client{id: record.ConnectionID, conn: ws, done: make(chan struct{})}
	if !g.register(c) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}
	defer g.wg.Done()

	ctx := context.WithoutCancel(r.Context())
	if err := g.storeCall(ctx, func(ctx context.Context) error { return g.registry.Put(ctx, record) }); err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "Failed to store connection",
			logger.ConnectionID(record.ConnectionID), logger.Error(err))
		g.unregister(c)
		return
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, "WebSocket connected",
		logger.ConnectionID(record.ConnectionID), logger.UserID(record.UserID))

	defer g.disconnect(ctx, c)

	hello, _ := json.Marshal(connectedFrame{Type: FrameConnected, ConnectionID: c.id})
	if err := g.write(c, hello, time.Time{}); err != nil {
		return
	}

	go g.pingLoop(c)
	g.readLoop(ctx, c)
}

func (g *Gateway) register(c *client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.clients[c.id] = c
	g.wg.Add(1)
	return true
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	if cur, ok := g.clients[c.id]; ok && cur == c {
		delete(g.clients, c.id)
	}
	g.mu.Unlock()
	c.close()
}

func (g *Gateway) disconnect(ctx context.Context, c *client) {
	g.unregister(c)
	if err := g.storeCall(ctx, func(ctx context.Context) error { return g.registry.Remove(ctx, c.id) }); err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "Failed to remove connection",
			logger.ConnectionID(c.id), logger.Error(err))
		return
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, "WebSocket disconnected", logger.ConnectionID(c.id))
}

func (g *Gateway) readLoop(ctx context.Context, c *client) {
	if g.cfg.ReadLimit > 0 {
		c.conn.SetReadLimit(g.cfg.ReadLimit)
	}
	g.extendReadDeadline(c)
	c.conn.SetPongHandler(func(string) error {
		g.extendReadDeadline(c)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.LogAttrs(ctx, slog.LevelDebug, "WebSocket read ended",
					logger.ConnectionID(c.id), logger.Error(err))
			}
			return
		}
		g.extendReadDeadline(c)
		g.handleMessage(ctx, c.id, data)
	}
}

func (g *Gateway) extendReadDeadline(c *client) {
	if g.cfg.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	}
}

// handleMessage applies one inbound client frame. Unknown and malformed frames are ignored.
func (g *Gateway) handleMessage(ctx context.Context, connectionID string, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "Ignoring malformed client message",
			logger.ConnectionID(connectionID), logger.Error(err))
		return
	}

	var err error
	switch msg.Action {
	case ActionHeartbeat:
		err = g.storeCall(ctx, func(ctx context.Context) error {
			return g.registry.Touch(ctx, connectionID, g.now())
		})
	case ActionSubscribe:
		topics := msg.Topics
		if topics == nil {
			topics = []string{}
		}
		err = g.storeCall(ctx, func(ctx context.Context) error {
			return g.registry.SetTopics(ctx, connectionID, topics)
		})
	default:
		g.logger.LogAttrs(ctx, slog.LevelInfo, "Unknown WebSocket action",
			logger.ConnectionID(connectionID), logger.Action(msg.Action))
		return
	}
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "Failed to apply client action",
			logger.ConnectionID(connectionID), logger.Action(msg.Action), logger.Error(err))
	}
}

func (g *Gateway) pingLoop(c *client) {
	if g.cfg.PingPeriod <= 0 {
		return
	}
	ticker := time.NewTicker(g.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(g.writeTimeout())); err != nil {
				c.close()
				return
			}
		}
	}
}

func (g *Gateway) storeCall(ctx context.Context, fn func(context.Context) error) error {
	if g.cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.StoreTimeout)
		defer cancel()
	}
	return fn(ctx)
}

func (g *Gateway) writeTimeout() time.Duration {
	if g.cfg.WriteTimeout > 0 {
		return g.cfg.WriteTimeout
	}
	return 10 * time.Second
}

// write sends one text frame. A zero deadline uses the configured write timeout.
func (g *Gateway) write(c *client, payload []byte, deadline time.Time) error {
	limit := time.Now().Add(g.writeTimeout())
	if deadline.IsZero() || deadline.After(limit) {
		deadline = limit
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.close()
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Push writes payload to a socket held by this gateway.
// Unknown IDs return fanout.ErrGone; write failures are transient errors.
func (g *Gateway) Push(ctx context.Context, connectionID string, payload []byte) error {
	g.mu.RLock()
	c, ok := g.clients[connectionID]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", fanout.ErrGone, connectionID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	return g.write(c, payload, deadline)
}

// Connected returns the number of sockets currently held.
func (g *Gateway) Connected() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Close sends a going-away frame to every client and waits for their handlers to finish.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	clients := make([]*client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.close()
	}
	g.wg.Wait()
	return nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
