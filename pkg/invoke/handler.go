package invoke

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Sender runs a fan-out. *fanout.Engine satisfies it.
type Sender interface {
	SendNotification(ctx context.Context, req fanout.Request) fanout.Result
}

// Handler turns invocation payloads into fan-outs and encodes the reply.
type Handler struct {
	sender   Sender
	validate *validator.Validate
	logger   *slog.Logger
}

// HandlerOption configures Handler.
type HandlerOption func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithValidator replaces the default struct validator.
func WithValidator(v *validator.Validate) HandlerOption {
	return func(h *Handler) {
		if v != nil {
			h.validate = v
		}
	}
}

// NewHandler creates a Handler backed by sender.
func NewHandler(sender Sender, opts ...HandlerOption) *Handler {
	h := &Handler{
		sender:   sender,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("invoke"))
	return h
}

// Handle processes one invocation payload and returns the encoded reply.
// It never fails: every problem is reported as an ErrorReply.
func (h *Handler) Handle(ctx context.Context, data []byte) []byte {
	var inv Invocation
	if err := json.Unmarshal(data, &inv); err != nil {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "malformed invocation", logger.Error(err))
		return encode(ErrorReply{Error: "Invalid invocation: " + err.Error()})
	}

	if inv.Action != ActionSendNotification {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "unknown invocation action", logger.Action(inv.Action))
		return encode(ErrorReply{Error: "Unknown action: " + inv.Action})
	}
	if inv.Notification == nil {
		return encode(ErrorReply{Error: "Missing notification"})
	}
	if err := h.validate.Struct(inv.Notification); err != nil {
		return encode(ErrorReply{Error: "Invalid notification: " + err.Error()})
	}

	start := time.Now()
	res := h.sender.SendNotification(ctx, *inv.Notification)
	h.logger.LogAttrs(ctx, slog.LevelInfo, "invocation handled",
		logger.Action(inv.Action),
		logger.NotificationType(inv.Notification.Type),
		slog.String("status", string(res.Status)),
		logger.Duration(time.Since(start)),
	)
	return encode(replyFromResult(res))
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"Error creating response"}`)
	}
	return b
}
