package fanout

import "time"

// Recorder observes fan-out activity. Implementations must be safe for concurrent use:
// DeliveryObserved is called from the per-recipient goroutines.
type Recorder interface {
	DeliveryObserved(kind OutcomeKind)
	ResultObserved(res Result, elapsed time.Duration)
	StaleRemovalObserved(err error)
}

type nopRecorder struct{}

func (nopRecorder) DeliveryObserved(OutcomeKind)         {}
func (nopRecorder) ResultObserved(Result, time.Duration) {}
func (nopRecorder) StaleRemovalObserved(error)           {}
