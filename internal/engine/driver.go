package engine

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/scratcheverywhere/sebuild/internal/progress"
)

const (
	DefaultCommand = "docker"   // Engine executable used when none is configured.
	DefaultTarget  = "exporter" // Recipe stage that produces the artifacts.
)

// Percentages reported by the driver. They sit after staging on the scale
// the orchestrator reports.
const (
	percentProbed   = 35
	percentStarted  = 45
	percentExited   = 90
	percentCaptured = 95
)

// Names an output stream of the build process.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Receives build output as it arrives, one line at a time including its
// trailing newline. Called concurrently for the two streams.
type LineFunc func(stream Stream, line string)

// Runs container builds.
type Driver struct {
	Command string   // Engine executable. Defaults to [DefaultCommand].
	Target  string   // Stage to build. Defaults to [DefaultTarget].
	Env     []string // Extra environment for the build process.
	Probe   Probe    // Reachability check. Nil skips the check.
	Output  LineFunc // Optional live output observer.
}

// Creates a driver for command that probes the engine with "command info".
func NewDriver(command string) *Driver {
	if command == "" {
		command = DefaultCommand
	}
	return &Driver{
		Command: command,
		Target:  DefaultTarget,
		Probe:   &CLIProbe{Command: command},
	}
}

// Output of a finished build process.
type Result struct {
	Invocation Invocation    // Command line that ran.
	ExitCode   int           // Exit status. Zero on success.
	Stdout     string        // Captured standard output.
	Stderr     string        // Captured standard error.
	Duration   time.Duration // Wall time of the process.
}

// Probes the engine and runs the build.
//
// Equivalent to [Driver.Ready] followed by [Driver.Run].
func (d *Driver) Execute(ctx context.Context, recipe, output, workspace string, sink progress.Sink) (*Result, error) {
	if err := d.Ready(ctx); err != nil {
		return nil, err
	}
	progress.Or(sink).Report(progress.Update{Phase: progress.PhaseProbed, Percent: percentProbed})

	return d.Run(d.Invocation(recipe, output, workspace), sink)
}

// Checks that the engine is reachable.
//
// Returns an error matching [ErrEngineUnavailable] and
// [fault.ErrEnvironment] otherwise.
func (d *Driver) Ready(ctx context.Context) error {
	if d.Probe == nil {
		return nil
	}
	if err := d.Probe.Probe(ctx); err != nil {
		if !errors.Is(err, ErrEngineUnavailable) {
			err = unavailable(err, "")
		}
		return err
	}
	slog.Debug("container engine ready", "command", d.command())
	return nil
}

// Runs inv to completion and classifies its exit status.
//
// Standard output and standard error are drained concurrently into memory.
// A non-zero exit returns a [*ProcessFailedError] carrying both streams in
// full. A process that cannot be started returns a [*LaunchError]. There is
// no cancellation once the process is running.
func (d *Driver) Run(inv Invocation, sink progress.Sink) (*Result, error) {
	sink = progress.Or(sink)

	cmd := exec.Command(inv.Command, inv.Args...)
	if len(d.Env) > 0 {
		cmd.Env = append(os.Environ(), d.Env...)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &LaunchError{Command: inv.Command, Err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &LaunchError{Command: inv.Command, Err: err}
	}

	slog.Info("starting build", "command", inv.String())

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Command: inv.Command, Err: err}
	}
	sink.Report(progress.Update{Phase: progress.PhaseStarted, Percent: percentStarted})

	var stdout, stderr strings.Builder
	var g errgroup.Group
	g.Go(func() error { return drain(stdoutPipe, &stdout, Stdout, d.Output) })
	g.Go(func() error { return drain(stderrPipe, &stderr, Stderr, d.Output) })

	// All reads must finish before Wait closes the pipes.
	drainErr := g.Wait()
	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	sink.Report(progress.Update{Phase: progress.PhaseExited, Percent: percentExited})

	res := &Result{
		Invocation: inv,
		ExitCode:   cmd.ProcessState.ExitCode(),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Duration:   elapsed,
	}

	sink.Report(progress.Update{Phase: progress.PhaseCaptured, Percent: percentCaptured})

	var exitErr *exec.ExitError
	switch {
	case errors.As(waitErr, &exitErr):
		slog.Debug("build exited", "code", res.ExitCode, "duration", elapsed)
		return res, &ProcessFailedError{
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	case waitErr != nil:
		return res, &LaunchError{Command: inv.Command, Err: waitErr}
	case drainErr != nil:
		return res, &LaunchError{Command: inv.Command, Err: drainErr}
	}

	slog.Info("build finished", "duration", elapsed.Round(time.Millisecond))
	return res, nil
}

// Copies r into buf line by line, passing each line to fn if set.
func drain(r io.Reader, buf *strings.Builder, stream Stream, fn LineFunc) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			buf.WriteString(line)
			if fn != nil {
				fn(stream, line)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (d *Driver) command() string {
	if d.Command == "" {
		return DefaultCommand
	}
	return d.Command
}

func (d *Driver) target() string {
	if d.Target == "" {
		return DefaultTarget
	}
	return d.Target
}
