// Package async provides generic helpers for running computations concurrently and joining
// their results.
//
// Async starts a function in its own goroutine and returns a *Future. Settle joins a batch of
// futures without short-circuiting, keeping one result slot per future, which is what the
// notification dispatcher relies on to collect per-recipient outcomes without shared counters.
// Limit caps how many wrapped calls run at once.
//
// # Usage
//
//	push := async.Limit(32, func(ctx context.Context, id string) (bool, error) {
//	    return true, channel.Push(ctx, id, payload)
//	})
//
//	futures := make([]*async.Future[bool], len(ids))
//	for i, id := range ids {
//	    futures[i] = async.Async(ctx, id, push)
//	}
//
//	for i, s := range async.Settle(futures...) {
//	    fmt.Println(ids[i], s.Value, s.Err)
//	}
//
// If the context is cancelled before a computation starts, its Future completes with the
// context error.
package async
