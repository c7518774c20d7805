package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gookit/color"
	"golang.org/x/term"

	"github.com/scratcheverywhere/sebuild/internal"
	"github.com/scratcheverywhere/sebuild/internal/build"
	"github.com/scratcheverywhere/sebuild/internal/engine"
	"github.com/scratcheverywhere/sebuild/internal/paths"
	"github.com/scratcheverywhere/sebuild/internal/progress"
	"github.com/scratcheverywhere/sebuild/internal/server"
	"github.com/scratcheverywhere/sebuild/internal/stage"
	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// Returns the configured version store.
func newStore() *toolchain.Store {
	return toolchain.NewStore(orDefault(RootCmd.Store, paths.Versions()))
}

// Returns the configured workspace root.
func workspaceRoot() string {
	return orDefault(RootCmd.Workspaces, paths.Workspaces())
}

// Creates a cache manager backed by the mirror bucket if one is configured,
// otherwise by GitHub.
func newManager(ctx context.Context) (*toolchain.Manager, error) {
	source, err := newSource(ctx)
	if err != nil {
		return nil, err
	}
	return toolchain.NewManager(newStore(), source), nil
}

func newSource(ctx context.Context) (toolchain.Source, error) {
	if m := RootCmd.Mirror; m.Bucket != "" {
		format, err := toolchain.ParseFormat(m.Format)
		if err != nil {
			return nil, err
		}
		mirror, err := toolchain.NewMirrorSource(ctx, toolchain.MirrorConfig{
			Bucket:          m.Bucket,
			Prefix:          m.Prefix,
			Format:          format,
			Endpoint:        m.Endpoint,
			Region:          m.Region,
			AccessKeyID:     m.AccessKeyID,
			SecretAccessKey: m.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return mirror, nil
	}

	owner, repo, ok := strings.Cut(RootCmd.Repo, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, errors.Newf("invalid repository %q, want OWNER/NAME", RootCmd.Repo)
	}
	format, err := toolchain.ParseFormat(RootCmd.Archive)
	if err != nil {
		return nil, err
	}

	gh := toolchain.NewGitHubSource(owner, repo)
	gh.Format = format
	gh.Token = RootCmd.GitHubToken
	gh.UserAgent = internal.UserAgent()
	return gh, nil
}

// Creates the engine driver with the configured probe.
func newDriver() *engine.Driver {
	drv := engine.NewDriver(RootCmd.Engine)
	drv.Target = RootCmd.Target

	switch RootCmd.Probe {
	case "docker-api":
		drv.Probe = &engine.DockerProbe{Host: RootCmd.DockerHost}
	case "containerd":
		drv.Probe = &engine.ContainerdProbe{Address: RootCmd.ContainerdAddress}
	case "none":
		drv.Probe = nil
	}

	if internal.IsVerbose() {
		drv.Output = func(_ engine.Stream, line string) {
			os.Stderr.WriteString(line)
		}
	}
	return drv
}

// Creates a builder wired to the configured store and engine.
func newBuilder() *build.Builder {
	return build.New(
		stage.NewEngine(newStore()),
		newDriver(),
		orDefault(RootCmd.LockFile, paths.BuildLock()),
	)
}

// Creates a daemon client for the configured socket.
func newClient() *server.Client {
	return server.NewClient(orDefault(RootCmd.Socket, paths.Socket()))
}

// Returns a progress sink suited to stderr and a function that tears it down.
//
// A terminal gets a progress bar unless output is quiet or engine output is
// being streamed; anything else gets debug log lines.
func newSink() (progress.Sink, func()) {
	if isTerminal(os.Stderr) && !internal.IsQuiet() && !internal.IsVerbose() {
		bar := progress.NewBar(os.Stderr)
		return bar, func() { bar.Close() }
	}
	return progress.Log(slog.Default()), func() {}
}

// Whether the given file is an interactive terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Prints a success line to stdout.
func success(format string, args ...any) {
	color.Success.Printf(format+"\n", args...)
}

// Prints a notice to stderr.
func notice(format string, args ...any) {
	color.Fprintf(os.Stderr, "<warning>"+format+"</>\n", args...)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
