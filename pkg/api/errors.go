package api

import (
	"errors"
	"net/http"
)

var (
	ErrNilResponse          = errors.New("handler returned nil response")
	ErrBinderNotApplicable  = errors.New("binder not applicable")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON request body")
	ErrValidation           = errors.New("validation failed")
)

// HTTPError carries a status code and a client-facing message.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return e.Message
}

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Message: "Service unavailable"}
)

// NotFound builds the error returned for unknown routes.
func NotFound(method, path string) HTTPError {
	return HTTPError{Code: http.StatusNotFound, Message: "Not found: " + method + " " + path}
}
