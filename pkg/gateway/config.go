package gateway

import "time"

type Config struct {
	Path           string        `env:"GATEWAY_PATH" envDefault:"/ws"`            // Path is where the upgrade handler is mounted.
	WriteTimeout   time.Duration `env:"GATEWAY_WRITE_TIMEOUT" envDefault:"10s"`   // WriteTimeout bounds a single frame write.
	PongWait       time.Duration `env:"GATEWAY_PONG_WAIT" envDefault:"60s"`       // PongWait is how long a silent client is kept.
	PingPeriod     time.Duration `env:"GATEWAY_PING_PERIOD" envDefault:"50s"`     // PingPeriod must be shorter than PongWait.
	ReadLimit      int64         `env:"GATEWAY_READ_LIMIT" envDefault:"65536"`    // ReadLimit caps inbound frame size in bytes.
	AllowedOrigins []string      `env:"GATEWAY_ALLOWED_ORIGINS" envSeparator:","` // AllowedOrigins restricts the Origin header; empty allows any.
	StoreTimeout   time.Duration `env:"GATEWAY_STORE_TIMEOUT" envDefault:"5s"`    // StoreTimeout bounds registry calls made on behalf of a socket.
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		Path:         "/ws",
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		PingPeriod:   50 * time.Second,
		ReadLimit:    65536,
		StoreTimeout: 5 * time.Second,
	}
}
