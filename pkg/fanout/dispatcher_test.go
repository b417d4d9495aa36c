package fanout_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

func fixedDispatcher(channel fanout.PushChannel, opts ...fanout.DispatcherOption) *fanout.Dispatcher {
	base := []fanout.DispatcherOption{
		fanout.WithDispatcherLogger(logger.Nop()),
		fanout.WithClock(func() time.Time { return time.Date(2024, 5, 1, 10, 30, 0, 123000000, time.FixedZone("X", 3600)) }),
		fanout.WithIDGenerator(func() string { return "notif-1" }),
	}
	return fanout.NewDispatcher(channel, append(base, opts...)...)
}

func TestDispatcher_Envelope(t *testing.T) {
	t.Parallel()

	channel := newScriptedChannel(nil)
	d := fixedDispatcher(channel)

	req := fanout.Request{
		Type:     "PROCESS_COMPLETE",
		Title:    "Done",
		Priority: fanout.PriorityHigh,
		Data:     map[string]any{"processId": "p-1"},
	}
	outcomes, err := d.Deliver(context.Background(), []fanout.Connection{conn("c1", "u1"), conn("c2", "u2")}, req)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	var env map[string]any
	require.NoError(t, json.Unmarshal(channel.payload("c1"), &env))
	assert.Equal(t, "NOTIFICATION", env["type"])

	payload, ok := env["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PROCESS_COMPLETE", payload["type"])
	assert.Equal(t, "Done", payload["title"])
	assert.Equal(t, "HIGH", payload["priority"])
	assert.Contains(t, payload, "timestamp", "zero timestamp is still serialized")
	assert.EqualValues(t, 0, payload["timestamp"])

	meta, ok := env["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "notif-1", meta["notificationId"])
	assert.Equal(t, "2024-05-01T09:30:00.123Z", meta["sentAt"])

	// Every recipient gets the same frame.
	assert.JSONEq(t, string(channel.payload("c1")), string(channel.payload("c2")))
}

func TestDispatcher_Envelope_FreshIDPerCall(t *testing.T) {
	t.Parallel()

	d := fanout.NewDispatcher(newScriptedChannel(nil))
	first := d.Envelope(fanout.Request{Type: "A"})
	second := d.Envelope(fanout.Request{Type: "A"})

	assert.NotEmpty(t, first.Metadata.NotificationID)
	assert.NotEqual(t, first.Metadata.NotificationID, second.Metadata.NotificationID)

	_, err := time.Parse(time.RFC3339Nano, first.Metadata.SentAt)
	assert.NoError(t, err)
}

func TestDispatcher_Deliver_ClassifiesOutcomes(t *testing.T) {
	t.Parallel()

	stale := make(chan string, 4)
	rec := newCountingRecorder()
	channel := newScriptedChannel(map[string]error{
		"c2": fmt.Errorf("post: %w", fanout.ErrGone),
		"c3": errors.New("network timeout"),
	})
	d := fixedDispatcher(channel,
		fanout.WithStaleConnections(stale),
		fanout.WithDispatcherRecorder(rec),
	)

	conns := []fanout.Connection{conn("c1", "u1"), conn("c2", "u2"), conn("c3", "u3")}
	outcomes, err := d.Deliver(context.Background(), conns, fanout.Request{Type: "A"})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "c1", outcomes[0].ConnectionID)
	assert.Equal(t, fanout.OutcomeDelivered, outcomes[0].Kind)
	assert.NoError(t, outcomes[0].Err)

	assert.Equal(t, "c2", outcomes[1].ConnectionID)
	assert.Equal(t, fanout.OutcomeGone, outcomes[1].Kind)
	assert.ErrorIs(t, outcomes[1].Err, fanout.ErrGone)

	assert.Equal(t, "c3", outcomes[2].ConnectionID)
	assert.Equal(t, fanout.OutcomeFailed, outcomes[2].Kind)
	assert.EqualError(t, outcomes[2].Err, "network timeout")

	res := fanout.Aggregate(outcomes, len(conns))
	assert.Equal(t, fanout.StatusSent, res.Status)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 3, res.TotalRecipients)

	select {
	case id := <-stale:
		assert.Equal(t, "c2", id)
	case <-time.After(time.Second):
		t.Fatal("stale connection was not signalled")
	}
	select {
	case id := <-stale:
		t.Fatalf("unexpected extra stale signal for %q", id)
	case <-time.After(50 * time.Millisecond):
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.deliveries[fanout.OutcomeDelivered])
	assert.Equal(t, 1, rec.deliveries[fanout.OutcomeGone])
	assert.Equal(t, 1, rec.deliveries[fanout.OutcomeFailed])
}

func TestDispatcher_Deliver_SlowRecipientDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	channel := pushFunc(func(ctx context.Context, id string, _ []byte) error {
		if id == "slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	d := fixedDispatcher(channel, fanout.WithPushTimeout(50*time.Millisecond))

	conns := []fanout.Connection{conn("fast-1", "u"), conn("slow", "u"), conn("fast-2", "u")}

	start := time.Now()
	outcomes, err := d.Deliver(context.Background(), conns, fanout.Request{Type: "A"})
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, fanout.OutcomeDelivered, outcomes[0].Kind)
	assert.Equal(t, fanout.OutcomeFailed, outcomes[1].Kind)
	assert.ErrorIs(t, outcomes[1].Err, context.DeadlineExceeded)
	assert.Equal(t, fanout.OutcomeDelivered, outcomes[2].Kind)
}

func TestDispatcher_Deliver_RunsConcurrently(t *testing.T) {
	t.Parallel()

	const n = 5
	release := make(chan struct{})
	arrived := make(chan struct{}, n)
	channel := pushFunc(func(ctx context.Context, _ string, _ []byte) error {
		arrived <- struct{}{}
		<-release
		return nil
	})
	d := fixedDispatcher(channel)

	conns := make([]fanout.Connection, n)
	for i := range conns {
		conns[i] = conn(fmt.Sprintf("c%d", i), "u")
	}

	done := make(chan []fanout.Outcome, 1)
	go func() {
		outcomes, _ := d.Deliver(context.Background(), conns, fanout.Request{Type: "A"})
		done <- outcomes
	}()

	for range n {
		select {
		case <-arrived:
		case <-time.After(time.Second):
			t.Fatal("pushes were not issued concurrently")
		}
	}
	close(release)

	outcomes := <-done
	assert.Len(t, outcomes, n)
}

func TestDispatcher_Deliver_MaxConcurrency(t *testing.T) {
	t.Parallel()

	var (
		mu             sync.Mutex
		inFlight, peak int
	)
	channel := pushFunc(func(ctx context.Context, _ string, _ []byte) error {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	})
	d := fixedDispatcher(channel, fanout.WithMaxConcurrency(2))

	conns := make([]fanout.Connection, 6)
	for i := range conns {
		conns[i] = conn(fmt.Sprintf("c%d", i), "u")
	}
	outcomes, err := d.Deliver(context.Background(), conns, fanout.Request{Type: "A"})
	require.NoError(t, err)

	for _, o := range outcomes {
		assert.Equal(t, fanout.OutcomeDelivered, o.Kind)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
}

func TestDispatcher_Deliver_OutlivesCallerContext(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		attempted []string
	)
	channel := pushFunc(func(ctx context.Context, connectionID string, _ []byte) error {
		mu.Lock()
		attempted = append(attempted, connectionID)
		mu.Unlock()

		time.Sleep(30 * time.Millisecond)
		return ctx.Err()
	})
	d := fixedDispatcher(channel, fanout.WithMaxConcurrency(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	conns := []fanout.Connection{conn("c1", "u"), conn("c2", "u"), conn("c3", "u")}
	outcomes, err := d.Deliver(ctx, conns, fanout.Request{Type: "A"})
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	for _, o := range outcomes {
		assert.Equal(t, fanout.OutcomeDelivered, o.Kind, o.ConnectionID)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, attempted)
}

func TestDispatcher_Deliver_RecoversPanic(t *testing.T) {
	t.Parallel()

	channel := pushFunc(func(_ context.Context, id string, _ []byte) error {
		if id == "boom" {
			panic("socket closed twice")
		}
		return nil
	})
	d := fixedDispatcher(channel)

	outcomes, err := d.Deliver(context.Background(), []fanout.Connection{conn("ok", "u"), conn("boom", "u")}, fanout.Request{Type: "A"})
	require.NoError(t, err)
	assert.Equal(t, fanout.OutcomeDelivered, outcomes[0].Kind)
	assert.Equal(t, fanout.OutcomeFailed, outcomes[1].Kind)
	assert.ErrorIs(t, outcomes[1].Err, fanout.ErrPanicked)
}

func TestDispatcher_Deliver_NoChannel(t *testing.T) {
	t.Parallel()

	d := fanout.NewDispatcher(nil)
	_, err := d.Deliver(context.Background(), []fanout.Connection{conn("c1", "u")}, fanout.Request{Type: "A"})
	assert.ErrorIs(t, err, fanout.ErrNoPushChannel)

	var nilDispatcher *fanout.Dispatcher
	_, err = nilDispatcher.Deliver(context.Background(), nil, fanout.Request{Type: "A"})
	assert.ErrorIs(t, err, fanout.ErrNoPushChannel)
}

func TestDispatcher_Deliver_EncodeFailure(t *testing.T) {
	t.Parallel()

	d := fixedDispatcher(newScriptedChannel(nil))
	req := fanout.Request{Type: "A", Data: map[string]any{"bad": make(chan int)}}

	_, err := d.Deliver(context.Background(), []fanout.Connection{conn("c1", "u")}, req)
	assert.ErrorIs(t, err, fanout.ErrEncodeEnvelope)
}

func TestDispatcher_Deliver_StaleHandoffDoesNotBlock(t *testing.T) {
	t.Parallel()

	// Unbuffered and never read: delivery must still complete promptly.
	stale := make(chan string)
	channel := newScriptedChannel(map[string]error{"c1": fanout.ErrGone})
	d := fixedDispatcher(channel,
		fanout.WithStaleConnections(stale),
		fanout.WithStaleHandoffTimeout(20*time.Millisecond),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		outcomes, err := d.Deliver(context.Background(), []fanout.Connection{conn("c1", "u")}, fanout.Request{Type: "A"})
		assert.NoError(t, err)
		assert.Equal(t, fanout.OutcomeGone, outcomes[0].Kind)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delivery blocked on stale hand-off")
	}
}
