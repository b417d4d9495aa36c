package mongo

import "errors"

var (
	// ErrFailedToConnectToMongo is returned when no ping succeeds before the connect deadline.
	ErrFailedToConnectToMongo = errors.New("mongo: failed to connect")
	// ErrHealthcheckFailed wraps ping failures from the readiness probe.
	ErrHealthcheckFailed = errors.New("mongo: healthcheck failed")
)
