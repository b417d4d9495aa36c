package gateway_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/connections"
	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/gateway"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

func newTestGateway(t *testing.T) (*gateway.Gateway, *connections.MemoryStore, string) {
	t.Helper()

	store := connections.NewMemoryStore()
	gw := gateway.New(gateway.DefaultConfig(), store,
		gateway.WithLogger(logger.Nop()),
		gateway.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }),
	)
	srv := httptest.NewServer(gw)
	t.Cleanup(func() {
		_ = gw.Close()
		srv.Close()
	})
	return gw, store, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) (*websocket.Conn, string) {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var hello struct {
		Type         string `json:"type"`
		ConnectionID string `json:"connectionId"`
	}
	require.NoError(t, ws.ReadJSON(&hello))
	require.Equal(t, gateway.FrameConnected, hello.Type)
	require.NotEmpty(t, hello.ConnectionID)
	return ws, hello.ConnectionID
}

func TestGateway_ConnectRegistersRecord(t *testing.T) {
	t.Parallel()

	_, store, url := newTestGateway(t)
	_, id := dial(t, url+"?userId=alice&roles=ADMIN,USER&teams=ops&department=eng")

	conn, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", conn.UserID)
	assert.Equal(t, []string{"ADMIN", "USER"}, conn.Roles)
	assert.Equal(t, []string{"ops"}, conn.Teams)
	assert.Equal(t, "eng", conn.Department)
	assert.Equal(t, int64(1_700_000_000), conn.ConnectedAt)
	assert.Equal(t, fanout.DefaultTopics, conn.SubscribedTopics)
}

func TestGateway_ConnectAppliesDefaults(t *testing.T) {
	t.Parallel()

	_, store, url := newTestGateway(t)
	_, id := dial(t, url)

	conn, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, fanout.AnonymousUser, conn.UserID)
	assert.Equal(t, []string{fanout.DefaultRole}, conn.Roles)
	assert.Equal(t, []string{fanout.DefaultTeam}, conn.Teams)
	assert.Equal(t, fanout.GeneralDepartment, conn.Department)
}

func TestGateway_InboundActions(t *testing.T) {
	t.Parallel()

	_, store, url := newTestGateway(t)
	ws, id := dial(t, url)
	ctx := context.Background()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, ws.WriteJSON(map[string]any{"action": "dance"}))
	require.NoError(t, ws.WriteJSON(map[string]any{"action": "subscribe", "topics": []string{"ALL"}}))

	require.Eventually(t, func() bool {
		conn, err := store.Get(ctx, id)
		return err == nil && assert.ObjectsAreEqual([]string{"ALL"}, conn.SubscribedTopics)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Touch(ctx, id, time.Unix(1, 0)))
	require.NoError(t, ws.WriteJSON(map[string]any{"action": "heartbeat"}))
	require.Eventually(t, func() bool {
		conn, err := store.Get(ctx, id)
		return err == nil && conn.LastSeen == 1_700_000_000
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_Push(t *testing.T) {
	t.Parallel()

	gw, _, url := newTestGateway(t)
	ws, id := dial(t, url)

	require.NoError(t, gw.Push(context.Background(), id, []byte(`{"type":"NOTIFICATION"}`)))

	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"NOTIFICATION"}`, string(data))

	err = gw.Push(context.Background(), "unknown", []byte(`{}`))
	assert.ErrorIs(t, err, fanout.ErrGone)
}

func TestGateway_DisconnectRemovesRecord(t *testing.T) {
	t.Parallel()

	gw, store, url := newTestGateway(t)
	ws, id := dial(t, url)
	assert.Equal(t, 1, gw.Connected())

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	_ = ws.Close()

	require.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), id)
		return err != nil && gw.Connected() == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, gw.Push(context.Background(), id, []byte(`{}`)), fanout.ErrGone)
}

func TestGateway_Dispatch(t *testing.T) {
	t.Parallel()

	gw, store, url := newTestGateway(t)
	admin, _ := dial(t, url+"?userId=alice&roles=ADMIN")
	_, _ = dial(t, url+"?userId=bob")

	engine := fanout.NewEngine(store,
		fanout.NewDispatcher(gw, fanout.WithDispatcherLogger(logger.Nop())),
		fanout.WithEngineLogger(logger.Nop()),
	)
	res := engine.SendNotification(context.Background(), fanout.Request{
		Type:          "DEPLOYMENT",
		Title:         "Deploy finished",
		RequiredRoles: []string{"ADMIN"},
	})
	assert.Equal(t, fanout.StatusSent, res.Status)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.TotalRecipients)

	var env fanout.Envelope
	require.NoError(t, admin.ReadJSON(&env))
	assert.Equal(t, fanout.EnvelopeType, env.Type)
	assert.Equal(t, "Deploy finished", env.Payload.Title)

	raw, err := json.Marshal(env.Payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"requiredRoles":["ADMIN"]`)
}

func TestGateway_CloseRejectsNewClients(t *testing.T) {
	t.Parallel()

	gw, _, url := newTestGateway(t)
	require.NoError(t, gw.Close())

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, 503, resp.StatusCode)
	}
}
