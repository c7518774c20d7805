package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/engine"
	"github.com/scratcheverywhere/sebuild/internal/fault"
	"github.com/scratcheverywhere/sebuild/internal/paths"
	"github.com/scratcheverywhere/sebuild/internal/progress"
	"github.com/scratcheverywhere/sebuild/internal/protocol"
)

// Talks to a running daemon. Each call opens its own connection.
type Client struct {
	SocketPath string // Daemon socket. Empty uses the default.

	dial func(ctx context.Context) (net.Conn, error)
}

// Creates a client for the daemon at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{SocketPath: socketPath}
}

// An error reported by the daemon.
//
// Matches [ErrRemoteFailed] and the category the daemon reported. When the
// daemon reported a failed build process, it unwraps to a
// [*engine.ProcessFailedError] carrying the captured output.
type RemoteError struct {
	protocol.ErrorResult
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Is(target error) bool {
	if target == ErrRemoteFailed {
		return true
	}
	category := fault.ByName(e.Category)
	return category != nil && target == category
}

func (e *RemoteError) Unwrap() error {
	if e.ExitCode == 0 {
		return nil
	}
	return &engine.ProcessFailedError{
		ExitCode: e.ExitCode,
		Stdout:   e.Stdout,
		Stderr:   e.Stderr,
	}
}

// Builds a project through the daemon, passing progress to sink.
func (c *Client) Build(ctx context.Context, req *protocol.BuildRequest, sink progress.Sink) (*protocol.BuildResult, error) {
	var res protocol.BuildResult
	if err := c.call(ctx, protocol.CmdBuild, req, sink, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Installs a toolchain version through the daemon, passing progress to sink.
func (c *Client) Install(ctx context.Context, req *protocol.InstallRequest, sink progress.Sink) (*protocol.InstallResult, error) {
	var res protocol.InstallResult
	if err := c.call(ctx, protocol.CmdInstall, req, sink, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Lists installed or remote toolchain versions.
func (c *Client) Versions(ctx context.Context, remote bool) (*protocol.VersionsResult, error) {
	var res protocol.VersionsResult
	if err := c.call(ctx, protocol.CmdVersions, &protocol.VersionsRequest{Remote: remote}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Queries the daemon's status.
func (c *Client) Status(ctx context.Context) (*protocol.StatusResult, error) {
	var res protocol.StatusResult
	if err := c.call(ctx, protocol.CmdStatus, nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Asks the daemon to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.call(ctx, protocol.CmdShutdown, nil, nil, nil)
}

// Sends one request and reads responses until the final one.
//
// Progress envelopes go to sink. An ok payload is decoded into out when out
// is not nil; an error envelope becomes a [*RemoteError]. Cancelling ctx
// closes the connection, which the daemon treats as a cancellation.
func (c *Client) call(ctx context.Context, cmd protocol.Command, payload any, sink progress.Sink, out any) error {
	sink = progress.Or(sink)

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return errors.Wrapf(ErrServer, "send %s: %v", cmd, err)
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(ErrServer, "read %s response: %v", cmd, err)
		}

		env, raw, err := protocol.Decode(line)
		if err != nil {
			return err
		}

		switch env.Command {
		case protocol.CmdProgress:
			u, err := protocol.DecodePayload[protocol.ProgressResult](raw)
			if err != nil {
				return err
			}
			sink.Report(*u)

		case protocol.CmdOK:
			if out == nil || len(raw) == 0 {
				return nil
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return errors.Wrapf(protocol.ErrDecode, "%v", err)
			}
			return nil

		case protocol.CmdError:
			res, err := protocol.DecodePayload[protocol.ErrorResult](raw)
			if err != nil {
				return err
			}
			return &RemoteError{ErrorResult: *res}

		default:
			return errors.Wrapf(ErrUnexpected, "%s", env.Command)
		}
	}
}

// Opens a connection to the daemon.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	if c.dial != nil {
		return c.dial(ctx)
	}

	path := c.SocketPath
	if path == "" {
		path = paths.Socket()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, errors.Wrapf(ErrNotRunning, "%s: %v", path, err)
	}
	return conn, nil
}
