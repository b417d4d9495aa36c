package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/requestid"
)

// Connect dials the NATS server from cfg and reconnects forever afterwards.
func Connect(cfg Config, log *slog.Logger) (*nats.Conn, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = logger.Nop()
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.LogAttrs(context.Background(), slog.LevelWarn, "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.LogAttrs(context.Background(), slog.LevelInfo, "nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnectTimeout))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Join(ErrConnectFailed, err)
	}
	return nc, nil
}

// Healthcheck reports whether nc is connected.
func Healthcheck(nc *nats.Conn) func(context.Context) error {
	return func(context.Context) error {
		if nc == nil || nc.Status() != nats.CONNECTED {
			return ErrConnectFailed
		}
		return nil
	}
}

const drainTimeout = 5 * time.Second

// Subscriber serves invocations from a NATS queue subscription.
type Subscriber struct {
	nc      *nats.Conn
	handler *Handler
	logger  *slog.Logger
	subject string
	queue   string
}

// NewSubscriber creates a Subscriber for cfg.Subject in cfg.Queue.
func NewSubscriber(nc *nats.Conn, cfg Config, handler *Handler, log *slog.Logger) *Subscriber {
	if log == nil {
		log = logger.Nop()
	}
	return &Subscriber{
		nc:      nc,
		handler: handler,
		logger:  log.With(logger.Component("invoke")),
		subject: cfg.Subject,
		queue:   cfg.Queue,
	}
}

// Run handles messages until ctx is done, then drains the subscription and
// waits for in-flight invocations.
func (s *Subscriber) Run(ctx context.Context) error {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		stopped bool
	)
	sub, err := s.nc.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serve(ctx, msg)
		}()
	})
	if err != nil {
		return errors.Join(ErrSubscribeFailed, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "listening for invocations",
		slog.String("subject", s.subject),
		slog.String("queue", s.queue),
	)

	<-ctx.Done()
	closed := sub.StatusChanged(nats.SubscriptionClosed)
	if err := sub.Drain(); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "drain subscription", logger.Error(err))
	} else {
		select {
		case <-closed:
		case <-time.After(drainTimeout):
		}
	}

	mu.Lock()
	stopped = true
	mu.Unlock()
	wg.Wait()
	return nil
}

func (s *Subscriber) serve(ctx context.Context, msg *nats.Msg) {
	var id string
	if msg.Header != nil {
		id = msg.Header.Get(requestid.Header)
	}
	ctx = requestid.WithContext(context.WithoutCancel(ctx), requestid.Resolve(id))

	reply := s.handler.Handle(ctx, msg.Data)
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(reply); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "respond to invocation", logger.Error(err))
	}
}

// Send publishes a send_notification invocation and waits for the reply.
// Remote failures are returned as errors wrapping ErrRemote.
func Send(ctx context.Context, nc *nats.Conn, subject string, req fanout.Request) (Reply, error) {
	data, err := json.Marshal(Invocation{Action: ActionSendNotification, Notification: &req})
	if err != nil {
		return Reply{}, errors.Join(ErrRequestFailed, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	id := requestid.FromContext(ctx)
	if id == "" {
		id = requestid.New()
	}
	msg.Header.Set(requestid.Header, id)

	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return Reply{}, errors.Join(ErrRequestFailed, err)
	}
	return decodeReply(resp.Data)
}

func decodeReply(data []byte) (Reply, error) {
	var probe ErrorReply
	if err := json.Unmarshal(data, &probe); err != nil {
		return Reply{}, errors.Join(ErrRequestFailed, err)
	}
	if probe.Error != "" {
		return Reply{}, fmt.Errorf("%w: %s", ErrRemote, probe.Error)
	}
	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return Reply{}, errors.Join(ErrRequestFailed, err)
	}
	return reply, nil
}
