package invoke

import "time"

// Config holds the NATS connection and the invocation subject.
type Config struct {
	URL            string        `env:"NATS_URL"`                                               // URL of the NATS server; empty disables direct invocation.
	ClientName     string        `env:"NATS_CLIENT_NAME" envDefault:"notifyhub"`                // ClientName is reported to the server.
	Subject        string        `env:"NOTIFYHUB_INVOKE_SUBJECT" envDefault:"notifyhub.invoke"` // Subject carries invocation requests.
	Queue          string        `env:"NOTIFYHUB_INVOKE_QUEUE" envDefault:"notifyhub"`          // Queue group shared by service instances.
	ConnectTimeout time.Duration `env:"NATS_CONNECT_TIMEOUT" envDefault:"5s"`                   // ConnectTimeout bounds the initial dial.
	RequestTimeout time.Duration `env:"NOTIFYHUB_INVOKE_TIMEOUT" envDefault:"30s"`              // RequestTimeout bounds a client-side invocation round trip.
}

// Enabled reports whether a NATS server is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}
