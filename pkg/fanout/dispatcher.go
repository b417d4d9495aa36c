package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/pkg/async"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// EnvelopeType tags every frame pushed by the dispatcher.
const EnvelopeType = "NOTIFICATION"

// PushChannel delivers a serialized payload to one transport-level connection.
// It must return an error wrapping ErrGone when the target no longer exists.
type PushChannel interface {
	Push(ctx context.Context, connectionID string, payload []byte) error
}

// Envelope is the frame written to each recipient.
type Envelope struct {
	Type     string           `json:"type"`
	Payload  Request          `json:"payload"`
	Metadata EnvelopeMetadata `json:"metadata"`
}

type EnvelopeMetadata struct {
	SentAt         string `json:"sentAt"`
	NotificationID string `json:"notificationId"`
}

// OutcomeKind classifies a single push.
type OutcomeKind string

const (
	OutcomeDelivered OutcomeKind = "delivered"
	OutcomeGone      OutcomeKind = "gone"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the per-recipient result of a push.
type Outcome struct {
	ConnectionID string
	Kind         OutcomeKind
	Err          error
}

// Dispatcher pushes one envelope to many connections concurrently.
type Dispatcher struct {
	channel        PushChannel
	stale          chan<- string
	pushTimeout    time.Duration
	handoffTimeout time.Duration
	maxConcurrency int
	logger         *slog.Logger
	recorder       Recorder
	now            func() time.Time
	newID          func() string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithStaleConnections makes the dispatcher emit the ID of every Gone recipient on ch.
// Emission never blocks delivery; see WithStaleHandoffTimeout.
func WithStaleConnections(ch chan<- string) DispatcherOption {
	return func(d *Dispatcher) { d.stale = ch }
}

// WithPushTimeout bounds each individual push.
func WithPushTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.pushTimeout = timeout }
}

// WithStaleHandoffTimeout bounds how long a Gone signal waits for a reader before it is dropped.
func WithStaleHandoffTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.handoffTimeout = timeout
		}
	}
}

// WithMaxConcurrency caps in-flight pushes per Deliver call. Zero means unbounded.
func WithMaxConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxConcurrency = n }
}

func WithDispatcherRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithClock overrides the dispatch timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithIDGenerator overrides the notification ID source.
func WithIDGenerator(gen func() string) DispatcherOption {
	return func(d *Dispatcher) {
		if gen != nil {
			d.newID = gen
		}
	}
}

// NewDispatcher creates a dispatcher that pushes through channel.
func NewDispatcher(channel PushChannel, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		channel:        channel,
		handoffTimeout: 30 * time.Second,
		logger:         slog.Default(),
		recorder:       nopRecorder{},
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver pushes req to every connection and returns one outcome per connection, in input order.
// It returns only after every push has resolved, even when ctx is cancelled first.
// A non-nil error means nothing was pushed.
func (d *Dispatcher) Deliver(ctx context.Context, conns []Connection, req Request) ([]Outcome, error) {
	if d == nil || d.channel == nil {
		return nil, ErrNoPushChannel
	}
	// A caller that goes away must not abandon recipients; only the push timeout bounds a push.
	ctx = context.WithoutCancel(ctx)

	env := d.Envelope(req)
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Join(ErrEncodeEnvelope, err)
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "Dispatching notification",
		logger.NotificationID(env.Metadata.NotificationID),
		logger.NotificationType(req.Type),
		logger.Recipients(len(conns)),
	)

	push := async.Limit(d.maxConcurrency, func(ctx context.Context, conn Connection) (Outcome, error) {
		return d.push(ctx, conn.ConnectionID, payload), nil
	})

	futures := make([]*async.Future[Outcome], len(conns))
	for i, conn := range conns {
		futures[i] = async.Async(ctx, conn, push)
	}

	outcomes := make([]Outcome, len(conns))
	for i, s := range async.Settle(futures...) {
		if s.Err != nil {
			// Limit or Async refused to run the push.
			outcomes[i] = Outcome{ConnectionID: conns[i].ConnectionID, Kind: OutcomeFailed, Err: s.Err}
			d.recorder.DeliveryObserved(OutcomeFailed)
			continue
		}
		outcomes[i] = s.Value
	}
	return outcomes, nil
}

// Envelope builds the frame for req with a fresh notification ID and dispatch timestamp.
func (d *Dispatcher) Envelope(req Request) Envelope {
	return Envelope{
		Type:    EnvelopeType,
		Payload: req,
		Metadata: EnvelopeMetadata{
			SentAt:         d.now().UTC().Format(time.RFC3339Nano),
			NotificationID: d.newID(),
		},
	}
}

func (d *Dispatcher) push(ctx context.Context, connectionID string, payload []byte) (out Outcome) {
	out.ConnectionID = connectionID

	defer func() {
		if r := recover(); r != nil {
			out.Kind = OutcomeFailed
			out.Err = fmt.Errorf("%w: push: %v", ErrPanicked, r)
			d.logger.LogAttrs(ctx, slog.LevelError, "Push channel panicked",
				logger.ConnectionID(connectionID),
				logger.Error(out.Err),
			)
		}
		d.recorder.DeliveryObserved(out.Kind)
	}()

	if d.pushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.pushTimeout)
		defer cancel()
	}

	err := d.channel.Push(ctx, connectionID, payload)
	switch {
	case err == nil:
		out.Kind = OutcomeDelivered
	case errors.Is(err, ErrGone):
		out.Kind, out.Err = OutcomeGone, err
		d.logger.LogAttrs(ctx, slog.LevelWarn, "Stale connection detected",
			logger.ConnectionID(connectionID),
		)
		d.markStale(connectionID)
	default:
		out.Kind, out.Err = OutcomeFailed, err
		d.logger.LogAttrs(ctx, slog.LevelError, "Failed to push notification",
			logger.ConnectionID(connectionID),
			logger.Error(err),
		)
	}
	return out
}

// markStale hands the ID to the stale channel without blocking the caller.
func (d *Dispatcher) markStale(connectionID string) {
	if d.stale == nil {
		return
	}
	go func() {
		timer := time.NewTimer(d.handoffTimeout)
		defer timer.Stop()
		select {
		case d.stale <- connectionID:
		case <-timer.C:
			d.logger.LogAttrs(context.Background(), slog.LevelWarn, "Dropped stale connection signal",
				logger.ConnectionID(connectionID),
				logger.Error(ErrStaleHandoffTTL),
			)
		}
	}()
}
