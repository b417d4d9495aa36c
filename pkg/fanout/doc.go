// Package fanout delivers one notification to every eligible real-time connection.
//
// The engine is built from four parts:
//
//   - IsEligible decides, for one connection and one Request, whether the connection is a
//     recipient. Explicit targeting (users, process owner, roles, teams) always wins; topic
//     subscription, including the "ALL" wildcard, is the fallback.
//   - Dispatcher serializes one Envelope and pushes it to every recipient concurrently
//     through a PushChannel, classifying each push as delivered, gone, or failed. Gone
//     recipients are emitted on a stale-connection channel for asynchronous cleanup.
//   - Aggregate folds the outcomes into a Result.
//   - Engine ties the three together behind SendNotification, which never returns an error.
//
// # Usage
//
//	reaper, _ := fanout.NewReaper(store)
//	go reaper.Run(ctx)
//
//	dispatcher := fanout.NewDispatcher(pushChannel,
//	    fanout.WithStaleConnections(reaper.Stale()),
//	    fanout.WithPushTimeout(10*time.Second),
//	)
//	engine := fanout.NewEngine(store, dispatcher)
//
//	res := engine.SendNotification(ctx, fanout.Request{
//	    Type:          "SYSTEM_ALERTS",
//	    Title:         "Maintenance",
//	    RequiredRoles: []string{"ADMIN"},
//	})
//	// res.Status is SENT, FAILED, or NO_RECIPIENTS
//
// # Status semantics
//
// A fan-out where at least one push was delivered reports StatusSent, even if other pushes
// failed; callers that care about partial delivery inspect Result.Failed.
package fanout
