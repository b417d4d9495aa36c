package gateway

import "errors"

var (
	ErrClosed      = errors.New("gateway: closed")
	ErrWriteFailed = errors.New("gateway: failed to write frame")
)
