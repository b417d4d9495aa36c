package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// ConnectionID records a real-time connection identifier under the key "connection_id".
func ConnectionID(id string) slog.Attr {
	return slog.String("connection_id", id)
}

// NotificationID records the per-fan-out envelope identifier.
func NotificationID(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// NotificationType records the notification category.
func NotificationType(t string) slog.Attr {
	return slog.String("notification_type", t)
}

// Module records the originating module name of a notification.
func Module(name string) slog.Attr {
	return slog.String("module", name)
}

// Recipients records the size of an eligible recipient set.
func Recipients(n int) slog.Attr {
	return slog.Int("recipients", n)
}

// RequestID records the request identifier under the key "request_id".
// Empty ids produce an empty Attr.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Action records an inbound client or invocation action.
func Action(name string) slog.Attr {
	return slog.String("action", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
