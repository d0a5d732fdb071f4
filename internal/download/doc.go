// Package download provides the fallback-chain download engine for
// fetching spectra from the archive.
//
// # Components
//
// The engine is built from three parts, leaves first:
//
//  1. Executor: tries one candidate URL with a fixed number of attempts and
//     a fixed delay, and saves the payload under a collision-safe name
//  2. Controller: walks a target's candidate sequence through the Executor
//     until one succeeds or all are exhausted
//  3. Scheduler: runs the Controller for many targets on a bounded set of
//     workers and tallies a RunSummary
//
// The Manager wires all three to the configured HTTP client, audit sink and
// optional mirror.
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, catalog.Default(), func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//
//	summary, err := manager.Run(ctx, targets)
//
// # Cancellation
//
// Cancelling the context passed to Run stops dispatching new targets.
// Targets already being resolved run to completion so no file is left
// half-written; undispatched targets are counted as skipped.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
package download
