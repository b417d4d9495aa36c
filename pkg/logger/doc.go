// Package logger builds context-aware *slog.Logger instances from functional options and
// provides the attribute helpers used across notifyhub so that keys stay consistent
// ("connection_id", "notification_type", "recipients", ...).
//
// New picks a text or JSON handler, attaches static attributes, and wraps the result with
// LogHandlerDecorator, which runs registered ContextExtractor callbacks on every record. The
// HTTP layer uses this to stamp request IDs onto every line logged while serving a request.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "notifyhub"),
//	    logger.WithContextExtractors(requestid.LogExtractor),
//	)
//	logger.SetAsDefault(log)
//
//	log.LogAttrs(ctx, slog.LevelInfo, "Notification sent",
//	    logger.NotificationType(req.Type),
//	    logger.Recipients(res.TotalRecipients),
//	)
//
// Error returns an empty attribute for a nil error, so it can be passed unconditionally.
package logger
