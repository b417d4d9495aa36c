package httpserver_test

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRun_ServesUntilContextCancelled(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	var started, stopped atomic.Bool
	srv := httpserver.New(
		httpserver.WithAddr(addr),
		httpserver.WithShutdownTimeout(100*time.Millisecond),
		httpserver.WithStartHook(func(*slog.Logger) { started.Store(true) }),
		httpserver.WithStopHook(func(*slog.Logger) { stopped.Store(true) }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusTeapot
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	waitDone(t, done)
	assert.True(t, started.Load())
	assert.True(t, stopped.Load())
	assert.NoError(t, srv.Shutdown(context.Background()), "repeated shutdown is a no-op")
}

func TestRun_StartError(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr("256.0.0.1:0"))
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestRun_AlreadyRunning(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := httpserver.New(
		httpserver.WithAddr(freeAddr(t)),
		httpserver.WithShutdownTimeout(50*time.Millisecond),
		httpserver.WithStartHook(func(*slog.Logger) { close(started) }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, http.NewServeMux()) }()
	<-started

	assert.ErrorIs(t, srv.Run(context.Background(), http.NewServeMux()), httpserver.ErrStart)

	cancel()
	waitDone(t, done)
}

func TestNewFromConfig_AppliesTimeouts(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	hs := &http.Server{IdleTimeout: 7 * time.Second}
	started := make(chan struct{})
	srv := httpserver.NewFromConfig(httpserver.Config{
		Addr:              addr,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       2 * time.Second,
		WriteTimeout:      3 * time.Second,
		IdleTimeout:       4 * time.Second,
		ShutdownTimeout:   50 * time.Millisecond,
	},
		httpserver.WithServer(hs),
		httpserver.WithStartHook(func(*slog.Logger) { close(started) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, nil) }()
	<-started

	assert.Equal(t, addr, hs.Addr)
	assert.Equal(t, time.Second, hs.ReadHeaderTimeout)
	assert.Equal(t, 2*time.Second, hs.ReadTimeout)
	assert.Equal(t, 3*time.Second, hs.WriteTimeout)
	assert.Equal(t, 7*time.Second, hs.IdleTimeout, "values set on the server win")

	cancel()
	waitDone(t, done)
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func()
	}{
		{"addr", func() { httpserver.WithAddr("") }},
		{"read header", func() { httpserver.WithReadHeaderTimeout(0) }},
		{"read", func() { httpserver.WithReadTimeout(-time.Second) }},
		{"write", func() { httpserver.WithWriteTimeout(-time.Second) }},
		{"idle", func() { httpserver.WithIdleTimeout(-time.Second) }},
		{"shutdown", func() { httpserver.WithShutdownTimeout(-time.Second) }},
		{"server", func() { httpserver.WithServer(nil) }},
		{"start hook", func() { httpserver.WithStartHook(nil) }},
		{"stop hook", func() { httpserver.WithStopHook(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}
	assert.NotPanics(t, func() { httpserver.WithLogger(nil) })
}
