package httpserver

import "errors"

var (
	// ErrStart wraps listener failures returned by Run.
	ErrStart = errors.New("httpserver: failed to start")
	// ErrShutdown wraps errors from graceful shutdown.
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
)
