// Package api exposes the notification engine over HTTP.
//
// Routes:
//
//	POST /api/notifications/send         run a fan-out, returns the Result
//	GET  /api/notifications/metrics      connection counts by role, team and department
//	GET  /api/notifications/health       service status and version
//	GET  /api/notifications/connections  every stored connection record
//	GET  /healthz, /readyz               liveness and readiness probes
//	GET  /metrics                        Prometheus exposition (WithMetrics)
//
// Handlers are typed: Wrap binds the request into R with the configured
// binders and renders the returned Response. Every error body has the shape
// {"error": "..."}; validation failures add a "details" map keyed by JSON
// field name.
package api
