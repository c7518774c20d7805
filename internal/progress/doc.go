// Package progress carries coarse progress milestones out of the build core.
//
// Components report to a [Sink] at fixed milestones; they never own or touch
// a presentation layer. A sink is called from whatever goroutine performs
// the step, so a front-end that renders updates on a UI thread must marshal
// them itself.
//
// Example usage:
//
//	sink := progress.Monotonic(progress.Multi(
//	    progress.NewBar(os.Stderr),
//	    progress.Log(slog.Default()),
//	))
//	sink.Report(progress.Update{Phase: progress.PhaseStaging, Percent: 5})
package progress
