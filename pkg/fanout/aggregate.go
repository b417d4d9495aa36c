package fanout

import "fmt"

// Aggregate folds per-recipient outcomes into a Result.
// Any delivered push makes the result SENT, even when others failed.
func Aggregate(outcomes []Outcome, total int) Result {
	if total == 0 {
		return Result{
			Status:  StatusNoRecipients,
			Message: "No eligible recipients found",
		}
	}

	var sent, failed int
	for _, o := range outcomes {
		if o.Kind == OutcomeDelivered {
			sent++
		} else {
			failed++
		}
	}

	status := StatusFailed
	if sent > 0 {
		status = StatusSent
	}

	return Result{
		Status:          status,
		Sent:            sent,
		Failed:          failed,
		TotalRecipients: total,
		Message:         fmt.Sprintf("Sent to %d/%d connections", sent, total),
	}
}

// DispatchFailure is the result of a dispatch that failed before any push was attempted.
// Every eligible recipient counts as failed.
func DispatchFailure(total int, err error) Result {
	return Result{
		Status:          StatusFailed,
		Failed:          total,
		TotalRecipients: total,
		Message:         "Failed to send notifications: " + errMessage(err),
	}
}

// Failure is the result of a fan-out that failed before recipients were known.
func Failure(err error) Result {
	return Result{
		Status:  StatusFailed,
		Message: "Failed to send notification: " + errMessage(err),
	}
}

func errMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
