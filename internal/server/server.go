package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/build"
	"github.com/scratcheverywhere/sebuild/internal/paths"
	"github.com/scratcheverywhere/sebuild/internal/protocol"
	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

const (

	// Group name used to grant socket access. Members of this group can
	// connect to the daemon socket without owning the process.
	socketGroup = "sebuild"

	// File mode applied to the Unix socket. Owner and group get read-write
	// (required for connect); others get no access.
	socketMode = 0660
)

// Holds server configuration.
type Config struct {
	SocketPath    string             // Override for the Unix socket path. Empty uses the default.
	PIDFile       string             // Override for the PID file. Empty uses the default.
	WorkspaceRoot string             // Parent of build workspaces. Empty uses the default.
	Builder       *build.Builder     // Runs builds.
	Manager       *toolchain.Manager // Manages the toolchain cache.
}

// Listens on a Unix domain socket and dispatches commands.
type Server struct {
	socketPath    string             // Path to the Unix socket file.
	pidFile       string             // Path to the PID file.
	workspaceRoot string             // Parent of build workspaces.
	builder       *build.Builder     // Build orchestrator.
	manager       *toolchain.Manager // Toolchain cache.
	listener      net.Listener       // Listener for incoming connections.
	startedAt     time.Time          // Timestamp when the server started.
	builds        int                // Total number of successful builds.
	installs      int                // Total number of successful installs.
	done          chan struct{}      // Channel to signal server shutdown.
	stopOnce      sync.Once          // Guards Stop.
	mu            sync.Mutex         // Mutex to protect shared state.
	work          sync.Mutex         // Serializes builds and installs.
}

// Creates a new server instance.
//
// The socket is not opened until [Start] is called.
func New(cfg Config) (*Server, error) {
	if cfg.Builder == nil || cfg.Manager == nil {
		return nil, errors.Wrap(ErrServer, "builder and manager are required")
	}

	s := &Server{
		socketPath:    cfg.SocketPath,
		pidFile:       cfg.PIDFile,
		workspaceRoot: cfg.WorkspaceRoot,
		builder:       cfg.Builder,
		manager:       cfg.Manager,
		done:          make(chan struct{}),
	}
	if s.socketPath == "" {
		s.socketPath = paths.Socket()
	}
	if s.pidFile == "" {
		s.pidFile = paths.PIDFile()
	}
	if s.workspaceRoot == "" {
		s.workspaceRoot = paths.Workspaces()
	}
	return s, nil
}

// Returns the socket path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Opens the Unix socket and begins accepting connections.
func (s *Server) Start() error {
	listener, err := listen(s.socketPath)
	if err != nil {
		return err
	}

	s.listener = listener
	s.startedAt = time.Now()

	if err := writePID(s.pidFile); err != nil {
		slog.Warn("failed to write PID file", "error", err)
	}

	slog.Info("server listening on socket", "path", s.socketPath)

	go s.accept()
	return nil
}

// Creates the Unix socket listener, removes any stale socket from a previous
// run, and applies permissions.
func listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), paths.DefaultDirMode); err != nil {
		return nil, errors.Wrapf(ErrServer, "%v", err)
	}

	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, errors.Wrapf(ErrServer, "failed to listen on %s: %v", socketPath, err)
	}

	if err := setSocketPermissions(socketPath); err != nil {
		listener.Close()
		return nil, err
	}

	return listener, nil
}

// Restricts socket access to owner and group. Any user in the sebuild group
// can also connect.
func setSocketPermissions(socketPath string) error {
	if err := os.Chmod(socketPath, socketMode); err != nil {
		return errors.Wrapf(ErrServer, "failed to chmod socket %s", socketPath)
	}

	if g, err := user.LookupGroup(socketGroup); err == nil {
		if gid, err := strconv.Atoi(g.Gid); err == nil {
			if err := os.Chown(socketPath, -1, gid); err != nil {
				slog.Warn("failed to chgrp socket", "group", socketGroup, "error", err)
			}
		}
	} else {
		slog.Debug("socket group not found, socket accessible to owner only", "group", socketGroup)
	}

	return nil
}

// Shuts down the server and cleans up resources. Safe to call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}

		os.Remove(s.socketPath)
		os.Remove(s.pidFile)

		close(s.done)
	})
	return nil
}

// Blocks until the server stops.
func (s *Server) Wait() {
	<-s.done
}

// Accepts connections in a loop until the server shuts down.
func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-s.done:
				return
			default:
				slog.Error("accept error", "error", err)
				continue
			}
		}

		go s.handle(conn)
	}
}

// Processes a single connection.
//
// Reads one newline-delimited JSON message, dispatches the command, and
// writes the responses. The connection is closed after one exchange.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	w := &responder{conn: conn}
	reader := bufio.NewReader(conn)

	line, err := reader.ReadBytes('\n')
	if err != nil {
		slog.Error("read error", "error", err)
		return
	}

	env, payload, err := protocol.Decode(line)
	if err != nil {
		w.fail(err)
		return
	}

	slog.Info("command received", "command", env.Command)

	ctx, cancel := contextWithDisconnect(context.Background(), reader)
	defer cancel()

	s.dispatch(ctx, w, env.Command, payload)
}

// Routes a command to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, w *responder, cmd protocol.Command, payload json.RawMessage) {
	switch cmd {
	case protocol.CmdBuild:
		s.handleBuild(ctx, w, payload)
	case protocol.CmdInstall:
		s.handleInstall(ctx, w, payload)
	case protocol.CmdVersions:
		s.handleVersions(ctx, w, payload)
	case protocol.CmdStatus:
		s.handleStatus(w)
	case protocol.CmdShutdown:
		s.handleShutdown(w)
	default:
		w.fail(errors.Wrapf(ErrBadRequest, "unknown command: %s", cmd))
	}
}

// Writes envelopes to one connection. Safe for concurrent use.
type responder struct {
	mu   sync.Mutex
	conn io.Writer
}

// Writes a JSON envelope followed by a newline.
func (r *responder) respond(cmd protocol.Command, payload any) {
	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		slog.Error("encode response failed", "error", err)
		return
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.conn.Write(data); err != nil {
		slog.Debug("write response failed", "command", cmd, "error", err)
	}
}

// Writes an error envelope describing err.
func (r *responder) fail(err error) {
	r.respond(protocol.CmdError, errorResult(err))
}

// Writes the daemon PID to path so the CLI can detect whether the daemon is
// already running and send it signals.
func writePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), paths.DefaultFileMode)
}

// Returns a derived context that is cancelled when the remote end of the
// connection closes.
//
// Detection works by reading from r in a background goroutine. The read blocks
// until the peer closes the connection, at which point it returns an error and
// the derived context is cancelled. The caller must ensure that no further data
// is expected on r for the lifetime of the returned context. If data arrives
// unexpectedly, it will be discarded and the context will be cancelled
// prematurely. The returned [context.CancelFunc] must always be called to
// release resources, even if the connection closes on its own.
func contextWithDisconnect(parent context.Context, r io.Reader) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		buf := make([]byte, 1)
		r.Read(buf)
		cancel()
	}()

	return ctx, cancel
}
