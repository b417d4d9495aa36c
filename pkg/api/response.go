package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/requestid"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string              `json:"error"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures a JSON response.
type JSONOption func(*jsonResponse)

// WithStatus sets a custom HTTP status code.
func WithStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// JSON renders v as the response body with status 200 unless overridden.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err as an ErrorBody with the status derived from it.
func JSONError(err error) Response {
	status, body := errorToBody(err)
	return &jsonResponse{status: status, body: body}
}

// WriteError is the default ErrorHandler.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	_ = JSONError(err).Render(w, r)
}

// LoggingErrorHandler logs server-side failures before writing them.
func LoggingErrorHandler(log *slog.Logger) ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status, body := errorToBody(err)
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
		)
		_ = (&jsonResponse{status: status, body: body}).Render(w, r)
	}
}

func errorToBody(err error) (int, ErrorBody) {
	var httpErr HTTPError
	var valErr ValidationError
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest, ErrorBody{Error: ErrValidation.Error(), Details: valErr}
	case errors.As(err, &httpErr):
		return httpErr.Code, ErrorBody{Error: httpErr.Message}
	case errors.Is(err, ErrMissingContentType), errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, ErrorBody{Error: err.Error()}
	case errors.Is(err, ErrFailedToParseJSON):
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: "Internal server error: " + err.Error()}
	}
}
