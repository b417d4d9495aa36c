package fanout_test

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

// pushFunc adapts a function to fanout.PushChannel.
type pushFunc func(ctx context.Context, connectionID string, payload []byte) error

func (f pushFunc) Push(ctx context.Context, connectionID string, payload []byte) error {
	return f(ctx, connectionID, payload)
}

// scriptedChannel answers each connection with a predefined error and records payloads.
type scriptedChannel struct {
	mu       sync.Mutex
	errs     map[string]error
	payloads map[string][]byte
}

func newScriptedChannel(errs map[string]error) *scriptedChannel {
	return &scriptedChannel{errs: errs, payloads: make(map[string][]byte)}
}

func (c *scriptedChannel) Push(_ context.Context, connectionID string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads[connectionID] = payload
	return c.errs[connectionID]
}

func (c *scriptedChannel) payload(connectionID string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads[connectionID]
}

type staticSource struct {
	conns []fanout.Connection
	err   error
}

func (s staticSource) All(context.Context) ([]fanout.Connection, error) {
	return s.conns, s.err
}

type panicSource struct{}

func (panicSource) All(context.Context) ([]fanout.Connection, error) {
	panic("store exploded")
}

type countingRecorder struct {
	mu         sync.Mutex
	deliveries map[fanout.OutcomeKind]int
	results    []fanout.Result
	removals   []error
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{deliveries: make(map[fanout.OutcomeKind]int)}
}

func (r *countingRecorder) DeliveryObserved(kind fanout.OutcomeKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[kind]++
}

func (r *countingRecorder) ResultObserved(res fanout.Result, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *countingRecorder) StaleRemovalObserved(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removals = append(r.removals, err)
}

func conn(id, user string, topics ...string) fanout.Connection {
	return fanout.Connection{ConnectionID: id, UserID: user, SubscribedTopics: topics}.WithDefaults()
}
