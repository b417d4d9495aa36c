package invoke

import "errors"

var (
	ErrNotConfigured   = errors.New("invoke: NATS_URL is not set")
	ErrConnectFailed   = errors.New("invoke: failed to connect to NATS")
	ErrSubscribeFailed = errors.New("invoke: failed to subscribe")
	ErrRequestFailed   = errors.New("invoke: request failed")
	ErrRemote          = errors.New("invoke: remote error")
)
