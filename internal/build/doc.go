// Package build sequences a single project build.
//
// A [Builder] allocates a fresh workspace, asks its [Stager] to populate it,
// checks that the container engine is reachable, runs the engine build and
// removes the workspace again, whatever the outcome. Every step's error is
// returned unchanged, so callers can branch on the precise kind:
//
//	res, err := b.Build(ctx, proj, build.Options{Output: "dist"}, sink)
//	switch {
//	case errors.Is(err, stage.ErrVersionNotInstalled):
//	    // offer to install the toolchain
//	case errors.Is(err, fault.ErrEnvironment):
//	    // ask the user to start the engine and retry
//	}
//
// Only one build runs at a time. A second call on the same [Builder] while a
// build is in flight, or a call while another process holds the lock file,
// fails with [ErrBuildInProgress]. Nothing is retried.
//
// Progress is reported through a [progress.Sink] on a single non-decreasing
// scale. Sinks are called from the goroutine doing the work; presenting them
// on a UI thread is the caller's concern.
package build
