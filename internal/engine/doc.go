// Package engine drives the external container engine that turns a staged
// workspace into build artifacts.
//
// A [Driver] first asks its [Probe] whether the engine is reachable, then runs
// a single command-line build of the recipe's exporter target with the
// workspace as build context and a local output directory. Both output
// streams are drained concurrently, line by line, into memory. On success the
// captured text is returned for diagnostics; on a non-zero exit it is carried
// verbatim by a [ProcessFailedError].
//
// Three probes are available: [CLIProbe] runs the engine's status command,
// [DockerProbe] pings the Docker API, and [ContainerdProbe] checks a
// containerd socket for engines such as nerdctl.
//
// Once the build process has started it runs to completion; the context only
// governs the probe.
//
// Example:
//
//	drv := engine.NewDriver("docker")
//	res, err := drv.Execute(ctx, recipe.Path, "out", recipe.Workspace, progress.Discard)
//	var failed *engine.ProcessFailedError
//	if errors.As(err, &failed) {
//	    fmt.Fprintln(os.Stderr, failed.Stderr)
//	}
package engine
