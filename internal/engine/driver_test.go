package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/containerd/errdefs"

	"github.com/scratcheverywhere/sebuild/internal/engine/enginetest"
	"github.com/scratcheverywhere/sebuild/internal/fault"
	"github.com/scratcheverywhere/sebuild/internal/progress"
)

// Creates a workspace with a recipe and returns the recipe path.
func newWorkspace(t *testing.T, dir string) string {
	t.Helper()
	recipe := filepath.Join(dir, "docker", "Dockerfile.3ds")
	if err := os.MkdirAll(filepath.Dir(recipe), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(recipe, []byte("FROM scratch AS exporter\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return recipe
}

func TestExecuteSuccess(t *testing.T) {
	fake := enginetest.New(t, enginetest.Options{Stdout: "done\n"})
	drv := NewDriver(fake.Path)

	ws := filepath.Join(t.TempDir(), "work space")
	recipe := newWorkspace(t, ws)
	out := filepath.Join(t.TempDir(), "out dir")

	var mu sync.Mutex
	var phases []progress.Phase
	sink := progress.Func(func(u progress.Update) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, u.Phase)
	})

	res, err := drv.Execute(context.Background(), recipe, out, ws, sink)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "building target exporter") || !strings.HasSuffix(res.Stdout, "done\n") {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "context "+ws) {
		t.Errorf("stderr = %q, want context path with spaces intact", res.Stderr)
	}
	if _, err := os.Stat(filepath.Join(out, "app.3dsx")); err != nil {
		t.Errorf("artifact missing: %v", err)
	}

	want := []progress.Phase{progress.PhaseProbed, progress.PhaseStarted, progress.PhaseExited, progress.PhaseCaptured}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}

	if !fake.Called(t, "info") || !fake.Called(t, "build") {
		t.Errorf("calls = %v", fake.Calls(t))
	}
}

func TestExecuteBuildFailure(t *testing.T) {
	fake := enginetest.New(t, enginetest.Options{
		BuildExit: 3,
		Stdout:    "step 1\nstep 2\n",
		Stderr:    "error: no space\n",
	})
	drv := NewDriver(fake.Path)

	ws := t.TempDir()
	recipe := newWorkspace(t, ws)

	res, err := drv.Execute(context.Background(), recipe, t.TempDir(), ws, nil)

	var failed *ProcessFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v, want *ProcessFailedError", err)
	}
	if failed.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", failed.ExitCode)
	}
	if !strings.HasSuffix(failed.Stdout, "step 1\nstep 2\n") {
		t.Errorf("stdout = %q", failed.Stdout)
	}
	if !strings.HasSuffix(failed.Stderr, "error: no space\n") {
		t.Errorf("stderr = %q", failed.Stderr)
	}
	if !errors.Is(err, ErrBuildFailed) || !errors.Is(err, fault.ErrProcess) {
		t.Errorf("error %v does not match its kind and category", err)
	}
	if errors.Is(err, ErrLaunch) {
		t.Errorf("error %v matches ErrLaunch", err)
	}
	if res == nil || res.ExitCode != 3 {
		t.Errorf("result = %+v", res)
	}
}

func TestExecuteEngineUnavailable(t *testing.T) {
	fake := enginetest.New(t, enginetest.Options{InfoExit: 1})
	drv := NewDriver(fake.Path)

	ws := t.TempDir()
	recipe := newWorkspace(t, ws)

	_, err := drv.Execute(context.Background(), recipe, t.TempDir(), ws, nil)

	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("error = %v, want ErrEngineUnavailable", err)
	}
	if !errors.Is(err, fault.ErrEnvironment) {
		t.Fatalf("error = %v, want environment category", err)
	}
	if !strings.Contains(err.Error(), "server: fake") {
		t.Errorf("error %q does not carry probe output", err)
	}
	if fake.Called(t, "build") {
		t.Error("build ran after failed probe")
	}
}

func TestExecuteProbeNotStartable(t *testing.T) {
	drv := NewDriver(filepath.Join(t.TempDir(), "missing-engine"))

	_, err := drv.Execute(context.Background(), "Dockerfile", t.TempDir(), t.TempDir(), nil)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("error = %v, want ErrEngineUnavailable", err)
	}
}

func TestRunLaunchError(t *testing.T) {
	drv := &Driver{}
	inv := Invocation{Command: filepath.Join(t.TempDir(), "missing-engine"), Args: []string{"build"}}

	_, err := drv.Run(inv, nil)

	var launch *LaunchError
	if !errors.As(err, &launch) {
		t.Fatalf("error = %v, want *LaunchError", err)
	}
	if !errors.Is(err, ErrLaunch) || !errors.Is(err, fault.ErrProcess) {
		t.Errorf("error %v does not match its kind and category", err)
	}
	if errors.Is(err, ErrBuildFailed) {
		t.Errorf("error %v matches ErrBuildFailed", err)
	}
}

func TestRunOutputObserver(t *testing.T) {
	fake := enginetest.New(t, enginetest.Options{Stdout: "a\nb\n", Stderr: "c\n"})

	var mu sync.Mutex
	lines := map[Stream][]string{}
	drv := &Driver{
		Command: fake.Path,
		Output: func(s Stream, line string) {
			mu.Lock()
			defer mu.Unlock()
			lines[s] = append(lines[s], line)
		},
	}

	ws := t.TempDir()
	recipe := newWorkspace(t, ws)

	if _, err := drv.Execute(context.Background(), recipe, t.TempDir(), ws, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := strings.Join(lines[Stdout], ""); !strings.HasSuffix(got, "a\nb\n") {
		t.Errorf("stdout lines = %q", lines[Stdout])
	}
	if got := strings.Join(lines[Stderr], ""); !strings.HasSuffix(got, "c\n") {
		t.Errorf("stderr lines = %q", lines[Stderr])
	}
	if fake.Called(t, "info") {
		t.Error("probe ran although none was configured")
	}
}

func TestReadyWrapsForeignErrors(t *testing.T) {
	drv := &Driver{Probe: ProbeFunc(func(context.Context) error {
		return errors.New("socket closed")
	})}

	err := drv.Ready(context.Background())
	if !errors.Is(err, ErrEngineUnavailable) || !errors.Is(err, fault.ErrEnvironment) {
		t.Fatalf("error = %v, want engine unavailable", err)
	}
	if !strings.Contains(err.Error(), "socket closed") {
		t.Fatalf("error %q lost its cause", err)
	}
}

func TestContainerdFailure(t *testing.T) {
	const address = "/run/containerd/containerd.sock"

	tests := []struct {
		name  string
		cause error
		want  string
	}{
		{"permission", fmt.Errorf("dial: %w", errdefs.ErrPermissionDenied), "check the socket's group"},
		{"unavailable", errdefs.ErrUnavailable, "is it running?"},
		{"timeout", context.DeadlineExceeded, "is it running?"},
		{"other", errors.New("bad response"), "health check at " + address},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := containerdFailure(tt.cause, address)
			if !errors.Is(err, ErrEngineUnavailable) || !errors.Is(err, fault.ErrEnvironment) {
				t.Fatalf("error = %v, want engine unavailable", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
