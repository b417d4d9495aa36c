// Package redis connects to Redis with go-redis/v9 and exposes a readiness probe.
//
// Connect pings the server with retries inside ConnectTimeout:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Errors are sentinel values joined with the driver error, so errors.Is works on both.
package redis
