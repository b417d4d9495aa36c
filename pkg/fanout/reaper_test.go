package fanout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

type mockRemover struct {
	mock.Mock
}

func (m *mockRemover) Remove(ctx context.Context, connectionID string) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func TestNewReaper_RequiresRemover(t *testing.T) {
	t.Parallel()

	r, err := fanout.NewReaper(nil)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, fanout.ErrNoRemover)
}

func TestReaper_Run(t *testing.T) {
	t.Parallel()

	removed := make(chan string, 2)
	remover := &mockRemover{}
	remover.On("Remove", mock.Anything, "gone-1").
		Run(func(args mock.Arguments) { removed <- args.String(1) }).
		Return(nil).Once()
	remover.On("Remove", mock.Anything, "gone-2").
		Run(func(args mock.Arguments) { removed <- args.String(1) }).
		Return(errors.New("conditional check failed")).Once()

	rec := newCountingRecorder()
	reaper, err := fanout.NewReaper(remover,
		fanout.WithReaperLogger(logger.Nop()),
		fanout.WithReaperRecorder(rec),
		fanout.WithRemoveTimeout(time.Second),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- reaper.Run(ctx) }()

	reaper.Stale() <- "gone-1"
	reaper.Stale() <- "gone-2"

	for _, want := range []string{"gone-1", "gone-2"} {
		select {
		case got := <-removed:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("%s was not removed", want)
		}
	}

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}

	remover.AssertExpectations(t)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.removals, 2)
	assert.NoError(t, rec.removals[0])
	assert.Error(t, rec.removals[1])
}

func TestReaper_WithDispatcher(t *testing.T) {
	t.Parallel()

	removed := make(chan string, 1)
	remover := &mockRemover{}
	remover.On("Remove", mock.Anything, "c2").
		Run(func(args mock.Arguments) { removed <- args.String(1) }).
		Return(nil).Once()

	reaper, err := fanout.NewReaperFromConfig(fanout.Config{StaleBuffer: 4, RemoveTimeout: time.Second}, remover,
		fanout.WithReaperLogger(logger.Nop()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = reaper.Run(ctx) }()

	d := fanout.NewDispatcherFromConfig(fanout.Config{PushTimeout: time.Second}, newScriptedChannel(map[string]error{"c2": fanout.ErrGone}),
		fanout.WithDispatcherLogger(logger.Nop()),
		fanout.WithStaleConnections(reaper.Stale()),
	)
	_, err = d.Deliver(ctx, []fanout.Connection{conn("c1", "u"), conn("c2", "u")}, fanout.Request{Type: "A"})
	require.NoError(t, err)

	select {
	case id := <-removed:
		assert.Equal(t, "c2", id)
	case <-time.After(time.Second):
		t.Fatal("gone connection was not reaped")
	}
	remover.AssertExpectations(t)
}
