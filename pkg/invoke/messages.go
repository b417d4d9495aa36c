package invoke

import "github.com/dmitrymomot/notifyhub/pkg/fanout"

// ActionSendNotification is the only action the handler understands.
const ActionSendNotification = "send_notification"

// Invocation is the request message published on the invocation subject.
type Invocation struct {
	Action       string          `json:"action"`
	Notification *fanout.Request `json:"notification,omitempty"`
}

// Reply is the response to a successful send_notification invocation.
type Reply struct {
	Status          fanout.Status `json:"status"`
	Sent            int           `json:"sent"`
	Failed          int           `json:"failed"`
	TotalRecipients int           `json:"total_recipients"`
	Message         string        `json:"message"`
}

// ErrorReply is the response to an invocation that could not be handled.
type ErrorReply struct {
	Error string `json:"error"`
}

func replyFromResult(res fanout.Result) Reply {
	return Reply{
		Status:          res.Status,
		Sent:            res.Sent,
		Failed:          res.Failed,
		TotalRecipients: res.TotalRecipients,
		Message:         res.Message,
	}
}
