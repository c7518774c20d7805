package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/build"
	"github.com/scratcheverywhere/sebuild/internal/engine"
	"github.com/scratcheverywhere/sebuild/internal/progress"
	"github.com/scratcheverywhere/sebuild/internal/project"
	"github.com/scratcheverywhere/sebuild/internal/protocol"
)

// Represents the 'sebuild build' command.
type BuildCmd struct {
	Project string `arg:"" type:"existingfile" help:"Project manifest (.sebx)."`
	Output  string `short:"o" help:"Output directory. Defaults to 'build' next to the manifest." placeholder:"DIR"`
	Daemon  bool   `help:"Build through the running daemon."`
}

// Executes the build command.
//
// Loads the manifest, builds it locally or through the daemon, and prints
// the engine's output when the build process fails.
func (c *BuildCmd) Run(ctx context.Context) error {
	manifest, err := filepath.Abs(c.Project)
	if err != nil {
		return err
	}

	output := c.Output
	if output == "" {
		output = filepath.Join(filepath.Dir(manifest), "build")
	}
	if output, err = filepath.Abs(output); err != nil {
		return err
	}

	sink, done := newSink()
	if c.Daemon {
		err = c.remote(ctx, manifest, output, sink)
	} else {
		err = c.local(ctx, manifest, output, sink)
	}
	done()

	var failed *engine.ProcessFailedError
	if errors.As(err, &failed) {
		fmt.Fprint(os.Stderr, failed.Stdout)
		fmt.Fprint(os.Stderr, failed.Stderr)
	}
	return err
}

func (c *BuildCmd) local(ctx context.Context, manifest, output string, sink progress.Sink) error {
	proj, err := project.Load(manifest)
	if err != nil {
		return err
	}

	res, err := newBuilder().Build(ctx, proj, build.Options{
		Output:        output,
		WorkspaceRoot: workspaceRoot(),
	}, sink)
	if err != nil {
		return err
	}

	success("Built %s into %s in %s", proj.Name, res.Output, res.Duration.Round(time.Millisecond))
	return nil
}

func (c *BuildCmd) remote(ctx context.Context, manifest, output string, sink progress.Sink) error {
	res, err := newClient().Build(ctx, &protocol.BuildRequest{
		Project: manifest,
		Output:  output,
	}, sink)
	if err != nil {
		return err
	}

	success("Built into %s in %s", res.Output, res.Duration)
	return nil
}
