package fanout

import "time"

// Config holds the tunables for the dispatcher and the stale-connection reaper.
type Config struct {
	PushTimeout         time.Duration `env:"FANOUT_PUSH_TIMEOUT" envDefault:"10s"`          // PushTimeout bounds a single push; 0 leaves it to the push channel.
	MaxConcurrency      int           `env:"FANOUT_MAX_CONCURRENCY" envDefault:"0"`         // MaxConcurrency caps in-flight pushes per fan-out; 0 means one goroutine per recipient.
	StaleBuffer         int           `env:"FANOUT_STALE_BUFFER" envDefault:"256"`          // StaleBuffer is the reaper queue capacity.
	StaleHandoffTimeout time.Duration `env:"FANOUT_STALE_HANDOFF_TIMEOUT" envDefault:"30s"` // StaleHandoffTimeout bounds how long a Gone signal waits for the reaper.
	RemoveTimeout       time.Duration `env:"FANOUT_REMOVE_TIMEOUT" envDefault:"5s"`         // RemoveTimeout bounds a single stale-connection removal.
}

// NewDispatcherFromConfig creates a Dispatcher from cfg. Only non-zero values are applied,
// explicit options are applied last.
func NewDispatcherFromConfig(cfg Config, channel PushChannel, opts ...DispatcherOption) *Dispatcher {
	configOpts := make([]DispatcherOption, 0, 3+len(opts))
	if cfg.PushTimeout > 0 {
		configOpts = append(configOpts, WithPushTimeout(cfg.PushTimeout))
	}
	if cfg.MaxConcurrency > 0 {
		configOpts = append(configOpts, WithMaxConcurrency(cfg.MaxConcurrency))
	}
	if cfg.StaleHandoffTimeout > 0 {
		configOpts = append(configOpts, WithStaleHandoffTimeout(cfg.StaleHandoffTimeout))
	}
	return NewDispatcher(channel, append(configOpts, opts...)...)
}

// NewReaperFromConfig creates a Reaper from cfg.
func NewReaperFromConfig(cfg Config, remover Remover, opts ...ReaperOption) (*Reaper, error) {
	configOpts := make([]ReaperOption, 0, 2+len(opts))
	if cfg.StaleBuffer > 0 {
		configOpts = append(configOpts, WithReaperBuffer(cfg.StaleBuffer))
	}
	if cfg.RemoveTimeout > 0 {
		configOpts = append(configOpts, WithRemoveTimeout(cfg.RemoveTimeout))
	}
	return NewReaper(remover, append(configOpts, opts...)...)
}
