package fanout

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Remover deletes a connection record from the store.
type Remover interface {
	Remove(ctx context.Context, connectionID string) error
}

// Reaper removes connections the dispatcher found to be gone.
// Hand its Stale channel to WithStaleConnections and run it in its own goroutine.
type Reaper struct {
	remover  Remover
	stale    chan string
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder
}

// ReaperOption configures a Reaper.
type ReaperOption func(*reaperOptions)

type reaperOptions struct {
	buffer   int
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder
}

// WithReaperBuffer sets the stale queue capacity.
func WithReaperBuffer(n int) ReaperOption {
	return func(o *reaperOptions) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithRemoveTimeout bounds each removal call.
func WithRemoveTimeout(d time.Duration) ReaperOption {
	return func(o *reaperOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithReaperLogger(l *slog.Logger) ReaperOption {
	return func(o *reaperOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithReaperRecorder(r Recorder) ReaperOption {
	return func(o *reaperOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewReaper creates a reaper that deletes stale connections through remover.
func NewReaper(remover Remover, opts ...ReaperOption) (*Reaper, error) {
	if remover == nil {
		return nil, ErrNoRemover
	}

	o := &reaperOptions{
		buffer:   256,
		timeout:  5 * time.Second,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Reaper{
		remover:  remover,
		stale:    make(chan string, o.buffer),
		timeout:  o.timeout,
		logger:   o.logger,
		recorder: o.recorder,
	}, nil
}

// Stale is the send side of the reaper queue.
func (r *Reaper) Stale() chan<- string {
	return r.stale
}

// Run removes queued connections until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-r.stale:
			r.remove(ctx, id)
		}
	}
}

func (r *Reaper) remove(ctx context.Context, connectionID string) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.remover.Remove(ctx, connectionID)
	r.recorder.StaleRemovalObserved(err)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "Failed to remove stale connection",
			logger.ConnectionID(connectionID),
			logger.Error(err),
		)
		return
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "Removed stale connection",
		logger.ConnectionID(connectionID),
	)
}
