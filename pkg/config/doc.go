// Package config loads typed configuration from the environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - LoadEnv reads .env files into the process environment (explicit files
//     from the --env-file flag, or ".env" by default).
//   - Load parses the environment into any struct using env/envDefault tags,
//     runs its Validate method when present and caches the result per type.
//   - ResetCache forces the next Load to re-read the environment, for tests.
//
// Every package of the service owns its Config struct; cmd/notifyhub loads
// them once at startup and passes them down explicitly.
//
//	import "github.com/dmitrymomot/notifyhub/pkg/config"
//
//	var cfg fanout.Config
//	config.MustLoad(&cfg)
package config
