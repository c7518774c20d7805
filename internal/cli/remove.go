package cli

import (
	"context"

	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// Represents the 'sebuild remove' command.
type RemoveCmd struct {
	Version string `arg:"" help:"Version to remove, as MAJOR.MINOR."`
}

// Executes the remove command.
func (c *RemoveCmd) Run(ctx context.Context) error {
	v, err := toolchain.Parse(c.Version)
	if err != nil {
		return err
	}

	if err := toolchain.NewManager(newStore(), nil).Remove(v); err != nil {
		return err
	}

	success("Removed %s", v)
	return nil
}
