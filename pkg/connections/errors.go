package connections

import "errors"

var (
	ErrConnectionNotFound = errors.New("connections: connection not found")
	ErrEmptyConnectionID  = errors.New("connections: empty connection id")
	ErrUnknownBackend     = errors.New("connections: unknown backend")
	ErrCorruptRecord      = errors.New("connections: corrupt connection record")
)
