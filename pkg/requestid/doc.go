// Package requestid carries correlation identifiers across HTTP requests,
// NATS invocations and log records.
//
// Middleware reuses a valid "X-Request-ID" header or generates a UUIDv4, stores
// it in the request context and echoes it in the response. Resolve applies the
// same rule to any transport that carries headers, such as NATS messages.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	handler := requestid.Middleware(mux)
//
// Invalid or empty identifiers supplied by a client are silently replaced.
package requestid
