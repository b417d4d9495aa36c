package fanout

import "errors"

var (
	// ErrGone is returned by a PushChannel when the target connection no longer exists.
	// Dispatcher classifies it separately from every other push error.
	ErrGone = errors.New("fanout: connection gone")

	ErrNoPushChannel   = errors.New("fanout: push channel is not configured")
	ErrNoSource        = errors.New("fanout: connection source is not configured")
	ErrEncodeEnvelope  = errors.New("fanout: failed to encode notification envelope")
	ErrPanicked        = errors.New("fanout: recovered from panic")
	ErrNoRemover       = errors.New("fanout: reaper requires a connection remover")
	ErrStaleHandoffTTL = errors.New("fanout: stale connection hand-off timed out")
)
