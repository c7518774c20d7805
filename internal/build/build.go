package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/scratcheverywhere/sebuild/internal/engine"
	"github.com/scratcheverywhere/sebuild/internal/fault"
	"github.com/scratcheverywhere/sebuild/internal/paths"
	"github.com/scratcheverywhere/sebuild/internal/progress"
	"github.com/scratcheverywhere/sebuild/internal/project"
	"github.com/scratcheverywhere/sebuild/internal/stage"
)

// Percentages reported by the builder itself. The engine reports the ones in
// between.
const (
	percentStaging = 0
	percentStaged  = 25
	percentProbed  = 35
	percentCleanup = 100
)

// Populates a workspace from a project. Implemented by [stage.Engine].
type Stager interface {
	Prepare(ctx context.Context, p *project.Project, workspace string) (*stage.Recipe, error)
}

// Runs container builds. Implemented by [engine.Driver].
type Engine interface {
	Ready(ctx context.Context) error
	Invocation(recipe, output, workspace string) engine.Invocation
	Run(inv engine.Invocation, sink progress.Sink) (*engine.Result, error)
}

// Controls a single build.
type Options struct {
	Output        string // Directory receiving the exporter stage's artifacts.
	WorkspaceRoot string // Parent of the per-build workspace. Defaults to the system temp dir.
}

// Returned after a successful build.
type Result struct {
	Output      string        // Absolute output directory.
	Workspace   string        // Workspace the build ran in. Already removed.
	Fingerprint string        // Content hash of the staged workspace.
	Stdout      string        // Engine standard output.
	Stderr      string        // Engine standard error.
	Duration    time.Duration // Wall time of the whole build.
}

// Runs builds one at a time.
type Builder struct {
	Stager   Stager // Workspace preparation.
	Engine   Engine // Container build.
	LockPath string // Advisory lock file shared by processes. Empty disables it.

	// Receives workspace removal failures. They never replace the build's
	// own error. Defaults to a warning log.
	CleanupErrors func(error)

	// Called after every state change.
	OnTransition func(from, to State)

	guard   sync.Mutex
	machine machine
	once    sync.Once
}

// Creates a builder from a staging engine and a driver, locking on lockPath.
func New(stager Stager, eng Engine, lockPath string) *Builder {
	return &Builder{Stager: stager, Engine: eng, LockPath: lockPath}
}

// Returns the current lifecycle state.
func (b *Builder) State() State {
	return b.machine.get()
}

// Builds p into opts.Output.
//
// The workspace is staged first, then the engine is probed, then the build
// runs. The workspace is removed on every path before Build returns. Errors
// from the stager and the engine are returned as is.
func (b *Builder) Build(ctx context.Context, p *project.Project, opts Options, sink progress.Sink) (_ *Result, err error) {
	if !b.guard.TryLock() {
		return nil, inProgress("builder is busy")
	}
	defer b.guard.Unlock()

	b.once.Do(func() {
		b.machine.observer = b.notify
	})

	lock, err := acquireLock(b.LockPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.release(); rerr != nil {
			slog.Warn("failed to release build lock", "path", b.LockPath, "error", rerr)
		}
	}()

	output, err := filepath.Abs(opts.Output)
	if err != nil {
		return nil, fault.Wrap(err, ErrFileSystemOperation, nil, opts.Output)
	}

	root := opts.WorkspaceRoot
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, paths.DefaultDirMode); err != nil {
		return nil, fault.Wrap(err, ErrFileSystemOperation, nil, root)
	}

	workspace, err := os.MkdirTemp(root, "build-")
	if err != nil {
		return nil, fault.Wrap(err, ErrFileSystemOperation, nil, root)
	}

	sink = progress.Monotonic(sink)
	start := time.Now()

	if err := b.machine.transition(StateIdle, StateStaging); err != nil {
		b.removeWorkspace(workspace)
		return nil, err
	}

	// Runs last on every path, panics included: record the outcome, tear
	// down, return to idle.
	defer func() {
		r := recover()
		switch {
		case r != nil:
			b.machine.advance(StateFailed)
			slog.Error("build panicked", "project", p.Name, "panic", r)
		case err != nil:
			b.machine.advance(StateFailed)
			slog.Info("build failed", "project", p.Name, "error", err)
		default:
			b.machine.advance(StateSucceeded)
		}

		b.removeWorkspace(workspace)
		sink.Report(progress.Update{Phase: progress.PhaseCleanup, Percent: percentCleanup})

		b.machine.advance(StateIdle)

		if r != nil {
			panic(r)
		}
	}()

	slog.Info("build started",
		"project", p.Name,
		"version", p.TargetVersion.String(),
		"platform", p.PlatformName(),
		"workspace", workspace,
	)

	sink.Report(progress.Update{Phase: progress.PhaseStaging, Percent: percentStaging})

	recipe, err := b.Stager.Prepare(ctx, p, workspace)
	if err != nil {
		return nil, err
	}
	sink.Report(progress.Update{Phase: progress.PhaseStaged, Percent: percentStaged})

	if err := b.machine.transition(StateStaging, StateAwaitingEngine); err != nil {
		return nil, err
	}
	if err := b.Engine.Ready(ctx); err != nil {
		return nil, err
	}
	sink.Report(progress.Update{Phase: progress.PhaseProbed, Percent: percentProbed})

	if err := b.machine.transition(StateAwaitingEngine, StateBuilding); err != nil {
		return nil, err
	}

	inv := b.Engine.Invocation(recipe.Path, output, recipe.Workspace)
	res, err := b.Engine.Run(inv, sink)
	if err != nil {
		return nil, err
	}

	slog.Info("build succeeded", "project", p.Name, "output", output)

	return &Result{
		Output:      output,
		Workspace:   workspace,
		Fingerprint: recipe.Fingerprint,
		Stdout:      res.Stdout,
		Stderr:      res.Stderr,
		Duration:    time.Since(start),
	}, nil
}

// Deletes the workspace, reporting failures to CleanupErrors.
func (b *Builder) removeWorkspace(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		err = fault.Wrap(err, ErrFileSystemOperation, nil, "remove workspace "+dir)
		if b.CleanupErrors != nil {
			b.CleanupErrors(err)
			return
		}
		slog.Warn("failed to remove workspace", "path", dir, "error", err)
	}
}

func (b *Builder) notify(from, to State) {
	slog.Debug("build state", "from", from.String(), "to", to.String())
	if b.OnTransition != nil {
		b.OnTransition(from, to)
	}
}
