package cli

import (
	"context"
	"fmt"

	"github.com/gookit/color"

	"github.com/scratcheverywhere/sebuild/internal"
)

// Represents the 'sebuild versions' command.
type VersionsCmd struct {
	Remote bool `short:"r" help:"List versions available for download instead of installed ones."`
}

// Executes the versions command.
//
// Installed versions are printed with their location. Remote versions are
// printed newest first, marking the ones already installed.
func (c *VersionsCmd) Run(ctx context.Context) error {
	mgr, err := newManager(ctx)
	if err != nil {
		return err
	}

	if !c.Remote {
		installed, err := mgr.ListInstalledVersions()
		if err != nil {
			return err
		}
		if len(installed) == 0 {
			notice("No toolchain versions installed. Run '%s install VERSION'.", internal.Name)
			return nil
		}
		for _, inst := range installed {
			fmt.Printf("%-8s %s\n", inst.Version, inst.Path)
		}
		return nil
	}

	versions, err := mgr.ListRemoteVersions(ctx)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if mgr.IsInstalled(v) {
			color.Success.Printf("%-8s installed\n", v)
		} else {
			fmt.Println(v)
		}
	}
	return nil
}
