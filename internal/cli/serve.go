package cli

import (
	"context"
	"log/slog"

	"github.com/scratcheverywhere/sebuild/internal/server"
)

// Represents the 'sebuild serve' command.
type ServeCmd struct{}

// Executes the serve command.
//
// Starts the daemon on a Unix domain socket and blocks until the context is
// cancelled (e.g. via SIGINT or SIGTERM) or a client asks it to shut down.
func (c *ServeCmd) Run(ctx context.Context) error {
	mgr, err := newManager(ctx)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		SocketPath:    RootCmd.Socket,
		WorkspaceRoot: workspaceRoot(),
		Builder:       newBuilder(),
		Manager:       mgr,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("sebuild daemon is running")

	stopped := make(chan struct{})
	go func() {
		srv.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return srv.Stop()
	case <-stopped:
		return nil
	}
}
