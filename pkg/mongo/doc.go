// Package mongo connects to MongoDB with the v2 driver.
//
// New applies the pool settings from Config and pings the deployment with retries;
// NewWithDatabase returns the handle for Config.Database directly.
package mongo
