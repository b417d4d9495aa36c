// Package invoke lets other services trigger a fan-out over NATS request/reply.
//
// A request on the invocation subject looks like
//
//	{"action": "send_notification", "notification": {"type": "...", ...}}
//
// and is answered with
//
//	{"status": "SENT", "sent": 2, "failed": 1, "total_recipients": 3, "message": "..."}
//
// Unknown actions are answered with {"error": "Unknown action: <action>"}.
// Instances subscribe in a shared queue group so each invocation runs once.
package invoke
