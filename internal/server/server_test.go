package server

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/build"
	"github.com/scratcheverywhere/sebuild/internal/engine"
	"github.com/scratcheverywhere/sebuild/internal/engine/enginetest"
	"github.com/scratcheverywhere/sebuild/internal/fault"
	"github.com/scratcheverywhere/sebuild/internal/progress"
	"github.com/scratcheverywhere/sebuild/internal/project"
	"github.com/scratcheverywhere/sebuild/internal/protocol"
	"github.com/scratcheverywhere/sebuild/internal/stage"
	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// A remote source with a fixed tag list whose downloads always fail.
type stubSource struct {
	tags []string
	err  error
}

func (s *stubSource) Tags(context.Context) ([]string, error) {
	return s.tags, s.err
}

func (s *stubSource) Open(context.Context, toolchain.Version) (io.ReadCloser, toolchain.Format, error) {
	return nil, "", errors.New("connection refused")
}

type testEnv struct {
	server  *Server
	client  *Client
	store   string
	project string
}

// Creates a server with a 0.29 toolchain and a project manifest, reachable
// through an in-memory pipe.
func newTestEnv(t *testing.T, opts enginetest.Options) *testEnv {
	t.Helper()

	store := t.TempDir()
	recipe := filepath.Join(store, "0.29", "docker", "Dockerfile.3ds")
	mustWrite(t, recipe, "FROM scratch AS exporter\n")

	projDir := t.TempDir()
	mustWrite(t, filepath.Join(projDir, "game.sb3"), "bundle")
	manifest := filepath.Join(projDir, "game.sebx")
	err := project.Save(&project.Project{
		Name:          "Game",
		Description:   "A game",
		Assets:        project.BundleFile("game.sb3"),
		TargetVersion: toolchain.MustParse("0.29"),
	}, manifest)
	if err != nil {
		t.Fatal(err)
	}

	fake := enginetest.New(t, opts)
	versions := toolchain.NewStore(store)

	srv, err := New(Config{
		SocketPath:    filepath.Join(t.TempDir(), "sebuild.sock"),
		PIDFile:       filepath.Join(t.TempDir(), "sebuild.pid"),
		WorkspaceRoot: t.TempDir(),
		Builder:       build.New(stage.NewEngine(versions), engine.NewDriver(fake.Path), ""),
		Manager:       toolchain.NewManager(versions, &stubSource{tags: []string{"0.29", "1.0", "nightly"}}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	client := &Client{dial: func(context.Context) (net.Conn, error) {
		c, s := net.Pipe()
		go srv.handle(s)
		return c, nil
	}}

	return &testEnv{server: srv, client: client, store: store, project: manifest}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuild(t *testing.T) {
	env := newTestEnv(t, enginetest.Options{})
	out := filepath.Join(t.TempDir(), "out")

	var mu sync.Mutex
	var updates []progress.Update
	sink := progress.Func(func(u progress.Update) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	})

	res, err := env.client.Build(context.Background(), &protocol.BuildRequest{
		Project: env.project,
		Output:  out,
	}, sink)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if res.Output != out || res.Fingerprint == "" {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(out, "app.3dsx")); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
	if len(updates) == 0 || updates[len(updates)-1].Percent != 100 {
		t.Errorf("updates = %v", updates)
	}
}

func TestBuildFailureCarriesOutput(t *testing.T) {
	env := newTestEnv(t, enginetest.Options{BuildExit: 4, Stderr: "linker error\n"})

	_, err := env.client.Build(context.Background(), &protocol.BuildRequest{
		Project: env.project,
		Output:  t.TempDir(),
	}, nil)

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if !errors.Is(err, fault.ErrProcess) {
		t.Errorf("error %v does not match process category", err)
	}

	var failed *engine.ProcessFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v, want *engine.ProcessFailedError in chain", err)
	}
	if failed.ExitCode != 4 || failed.Stderr == "" {
		t.Errorf("failure = %+v", failed)
	}
}

func TestBuildRejectsRelativePaths(t *testing.T) {
	env := newTestEnv(t, enginetest.Options{})

	_, err := env.client.Build(context.Background(), &protocol.BuildRequest{
		Project: "game.sebx",
		Output:  "out",
	}, nil)
	if !errors.Is(err, ErrRemoteFailed) {
		t.Fatalf("error = %v, want ErrRemoteFailed", err)
	}
}

func TestBuildMissingVersion(t *testing.T) {
	env := newTestEnv(t, enginetest.Options{})
	if err := os.RemoveAll(filepath.Join(env.store, "0.29")); err != nil {
		t.Fatal(err)
	}

	_, err := env.client.Build(context.Background(), &protocol.BuildRequest{
		Project: env.project,
		Output:  t.TempDir(),
	}, nil)
	if !errors.Is(err, fault.ErrPrecondition) {
		t.Fatalf("error = %v, want precondition category", err)
	}
}

func TestVersions(t *testing.T) {
	env := newTestEnv(t, enginetest.Options{})

	local, err := env.client.Versions(context.Background(), false)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(local.Installed) != 1 || local.Installed[0].Version != toolchain.MustParse("0.29") {
		t.Errorf("installed = %+v", local.Installed)
	}

	remote, err := env.client.Versions(context.Background(), true)
	if err != nil {
		t.Fatalf("Versions(remote): %v", err)
	}
	want := []toolchain.Version{toolchain.MustParse("1.0"), toolchain.MustParse("0.29")}
	if len(remote.Versions) != len(want) || remote.Versions[0] != want[0] || remote.Versions[1] != want[1] {
		t.Errorf("remote = %v, want %v", remote.Versions, want)
	}
}

func TestInstallErrors(t *testing.T) {
	env := newTestEnv(t, enginetest.Options{})

	_, err := env.client.Install(context.Background(), &protocol.InstallRequest{Version: "0.29.1"}, nil)
	if !errors.Is(err, ErrRemoteFailed) || errors.Is(err, fault.ErrNetwork) {
		t.Fatalf("invalid version error = %v", err)
	}

	_, err = env.client.Install(context.Background(), &protocol.InstallRequest{Version: "1.0"}, nil)
	if !errors.Is(err, fault.ErrNetwork) {
		t.Fatalf("download error = %v, want network category", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t, enginetest.Options{})

	err := env.client.call(context.Background(), protocol.Command("explode"), nil, nil, nil)
	if !errors.Is(err, ErrRemoteFailed) {
		t.Fatalf("error = %v, want ErrRemoteFailed", err)
	}
}

func TestSocketLifecycle(t *testing.T) {
	env := newTestEnv(t, enginetest.Options{})
	srv := env.server

	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	client := NewClient(srv.SocketPath())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Pid != os.Getpid() || status.State != "idle" {
		t.Errorf("status = %+v", status)
	}

	if err := client.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		srv.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		t.Fatal("server did not stop")
	}

	if _, err := client.Status(ctx); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("status after shutdown error = %v, want ErrNotRunning", err)
	}
}
