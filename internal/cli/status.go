package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/server"
)

// Represents the 'sebuild status' command.
type StatusCmd struct {
	Timeout time.Duration `default:"5s" help:"How long to wait for the daemon."`
}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	status, err := newClient().Status(ctx)
	if errors.Is(err, server.ErrNotRunning) {
		notice("The daemon is not running. Start it with 'sebuild serve'.")
		return err
	}
	if err != nil {
		return err
	}

	fmt.Printf("version:  %s\n", status.Version)
	fmt.Printf("pid:      %d\n", status.Pid)
	fmt.Printf("uptime:   %s\n", status.Uptime)
	fmt.Printf("state:    %s\n", status.State)
	fmt.Printf("builds:   %d\n", status.Builds)
	fmt.Printf("installs: %d\n", status.Installs)
	return nil
}
