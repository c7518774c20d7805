package engine

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/errdefs"
	"github.com/containerd/errdefs/pkg/errgrpc"
	"github.com/docker/docker/client"
)

// Default time allowed for a probe when the context has no deadline.
const defaultProbeTimeout = 15 * time.Second

// Checks that a container engine can accept builds.
//
// Implementations return an error matching [ErrEngineUnavailable] when it
// cannot.
type Probe interface {
	Probe(ctx context.Context) error
}

// Adapts a plain function to a [Probe].
type ProbeFunc func(ctx context.Context) error

// Calls f.
func (f ProbeFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// Probes an engine by running its status command.
//
// The engine is unavailable if the command cannot be started or exits with a
// non-zero status. Its combined output is included in the error.
type CLIProbe struct {
	Command string   // Engine executable.
	Args    []string // Status command. Defaults to "info".
}

// Runs the status command.
func (p *CLIProbe) Probe(ctx context.Context) error {
	ctx, cancel := withProbeTimeout(ctx)
	defer cancel()

	args := p.Args
	if len(args) == 0 {
		args = []string{"info"}
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(out.String())
		if detail == "" {
			detail = Invocation{Command: p.Command, Args: args}.String()
		}
		return unavailable(err, detail)
	}
	return nil
}

// Probes a Docker daemon through its API.
//
// Connection settings come from the standard DOCKER_* environment unless
// Host is set.
type DockerProbe struct {
	Host string // Daemon address, e.g. "unix:///var/run/docker.sock".
}

// Pings the daemon.
func (p *DockerProbe) Probe(ctx context.Context) error {
	ctx, cancel := withProbeTimeout(ctx)
	defer cancel()

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if p.Host != "" {
		opts = append(opts, client.WithHost(p.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return unavailable(err, "docker client")
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return unavailable(err, cli.DaemonHost())
	}
	return nil
}

// Probes a containerd daemon, for engines such as nerdctl that build through
// containerd rather than the Docker API.
type ContainerdProbe struct {
	Address   string // Socket path. Defaults to /run/containerd/containerd.sock.
	Namespace string // Defaults to "default".
}

// Connects to the daemon and asks whether it is serving.
func (p *ContainerdProbe) Probe(ctx context.Context) error {
	ctx, cancel := withProbeTimeout(ctx)
	defer cancel()

	address := p.Address
	if address == "" {
		address = "/run/containerd/containerd.sock"
	}
	namespace := p.Namespace
	if namespace == "" {
		namespace = "default"
	}

	c, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return unavailable(err, address)
	}
	defer c.Close()

	serving, err := c.IsServing(ctx)
	if err != nil {
		return containerdFailure(errgrpc.ToNative(err), address)
	}
	if !serving {
		return unavailable(nil, address+" is not serving")
	}
	return nil
}

// Describes a failed containerd health check by what the user can do about it.
func containerdFailure(err error, address string) error {
	switch {
	case errdefs.IsPermissionDenied(err):
		return unavailable(err, "permission denied on "+address+", check the socket's group")
	case errdefs.IsUnavailable(err), errdefs.IsDeadlineExceeded(err):
		return unavailable(err, "no containerd daemon answering at "+address+", is it running?")
	default:
		return unavailable(err, "containerd health check at "+address)
	}
}

// Applies [defaultProbeTimeout] unless ctx already has a deadline.
func withProbeTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, defaultProbeTimeout)
}
