// Package async provides the cooperative control loop and safe background
// goroutines.
//
// # Overview
//
// The plugin loader, protocol registry and dispatch layer are single-threaded:
// they run on one control goroutine and hold no locks. Anything that happens
// on another goroutine (filesystem watcher events, HTTP requests) is posted to
// that goroutine through a Loop.
//
// # Loop
//
//	loop := async.NewLoop(64, log)
//	go loop.Run(ctx)
//
//	// fire and forget
//	loop.Post(func() { manager.ProbeAndQueue(path) })
//
//	// wait for the result
//	err := loop.Call(ctx, func() error {
//		_, err := manager.Load(p)
//		return err
//	})
//
// # SafeGo
//
// SafeGo runs a function on its own goroutine with a deadline. Errors and
// panics are logged against the task name:
//
//	done := async.SafeGo(ctx, log, 30*time.Second, "rescan", func(ctx context.Context) error {
//		return loop.Call(ctx, func() error { manager.ProbeAll(""); return nil })
//	})
package async
