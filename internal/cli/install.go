package cli

import (
	"context"

	"github.com/opencontainers/go-digest"

	"github.com/scratcheverywhere/sebuild/internal/protocol"
	"github.com/scratcheverywhere/sebuild/internal/toolchain"
)

// Represents the 'sebuild install' command.
type InstallCmd struct {
	Version string `arg:"" help:"Version to install, as MAJOR.MINOR."`
	Digest  string `help:"Expected digest of the archive, e.g. sha256:<hex>." placeholder:"DIGEST"`
	Daemon  bool   `help:"Install through the running daemon."`
}

// Executes the install command.
func (c *InstallCmd) Run(ctx context.Context) error {
	v, err := toolchain.Parse(c.Version)
	if err != nil {
		return err
	}

	var want digest.Digest
	if c.Digest != "" {
		if want, err = digest.Parse(c.Digest); err != nil {
			return err
		}
	}

	sink, done := newSink()
	defer done()

	if c.Daemon {
		res, err := newClient().Install(ctx, &protocol.InstallRequest{
			Version: v.String(),
			Digest:  want.String(),
		}, sink)
		if err != nil {
			return err
		}
		done()
		success("Installed %s into %s", res.Version, res.Path)
		return nil
	}

	mgr, err := newManager(ctx)
	if err != nil {
		return err
	}
	if err := mgr.Install(ctx, v, toolchain.InstallOptions{Digest: want, Progress: sink}); err != nil {
		return err
	}

	done()
	success("Installed %s into %s", v, mgr.Store.Path(v))
	return nil
}
