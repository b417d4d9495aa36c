package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

const tracerName = "github.com/dmitrymomot/notifyhub/pkg/fanout"

// ConnectionSource provides a best-effort snapshot of every active connection.
type ConnectionSource interface {
	All(ctx context.Context) ([]Connection, error)
}

// Engine resolves recipients, dispatches, and aggregates. It is the single entry point
// for sending notifications.
type Engine struct {
	source     ConnectionSource
	dispatcher *Dispatcher
	logger     *slog.Logger
	recorder   Recorder
	tracer     trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithEngineRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewEngine creates an engine reading candidates from source and pushing through dispatcher.
func NewEngine(source ConnectionSource, dispatcher *Dispatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		source:     source,
		dispatcher: dispatcher,
		logger:     slog.Default(),
		recorder:   nopRecorder{},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SendNotification fans req out to every eligible connection.
// It never returns an error and never panics: every failure mode ends in a Result.
func (e *Engine) SendNotification(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "fanout.SendNotification", trace.WithAttributes(
		attribute.String("notification.type", req.Type),
		attribute.String("notification.module", req.ModuleName),
	))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrPanicked, r)
			e.logger.LogAttrs(ctx, slog.LevelError, "Failed to send notification",
				logger.NotificationType(req.Type),
				logger.Error(err),
			)
			res = Failure(err)
		}

		span.SetAttributes(
			attribute.String("notification.status", string(res.Status)),
			attribute.Int("notification.recipients", res.TotalRecipients),
			attribute.Int("notification.sent", res.Sent),
			attribute.Int("notification.failed", res.Failed),
		)
		if res.Status == StatusFailed {
			span.SetStatus(codes.Error, res.Message)
		}
		span.End()
		e.recorder.ResultObserved(res, time.Since(start))
	}()

	if e.source == nil {
		return Failure(ErrNoSource)
	}

	conns, err := e.source.All(ctx)
	if err != nil {
		span.RecordError(err)
		e.logger.LogAttrs(ctx, slog.LevelError, "Failed to resolve eligible connections",
			logger.NotificationType(req.Type),
			logger.Error(err),
		)
		return Failure(err)
	}

	eligible := Eligible(conns, req)
	if len(eligible) == 0 {
		e.logger.LogAttrs(ctx, slog.LevelWarn, "No eligible connections found",
			logger.NotificationType(req.Type),
		)
		return Aggregate(nil, 0)
	}

	outcomes, err := e.dispatcher.Deliver(ctx, eligible, req)
	if err != nil {
		span.RecordError(err)
		e.logger.LogAttrs(ctx, slog.LevelError, "Failed to dispatch notification",
			logger.NotificationType(req.Type),
			logger.Recipients(len(eligible)),
			logger.Error(err),
		)
		return DispatchFailure(len(eligible), err)
	}

	res = Aggregate(outcomes, len(eligible))
	e.logger.LogAttrs(ctx, slog.LevelInfo, "Notification sent",
		logger.NotificationType(req.Type),
		logger.Module(req.ModuleName),
		logger.Recipients(res.TotalRecipients),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		logger.Duration(time.Since(start)),
	)
	return res
}
