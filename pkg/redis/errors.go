package redis

import "errors"

var (
	// ErrEmptyConnectionURL means REDIS_URL was not set.
	ErrEmptyConnectionURL = errors.New("redis: empty connection url")
	// ErrFailedToParseRedisConnString wraps redis.ParseURL failures.
	ErrFailedToParseRedisConnString = errors.New("redis: failed to parse connection url")
	// ErrRedisNotReady is returned when retries are exhausted without a successful ping.
	ErrRedisNotReady = errors.New("redis: not ready after retries")
	// ErrHealthcheckFailed wraps ping failures from the readiness probe.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
