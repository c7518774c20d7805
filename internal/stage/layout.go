package stage

import (
	"path/filepath"
	"strings"
)

// Placeholder replaced with the project's platform in [Layout] paths.
const platformToken = "{platform}"

// Fixed locations inside a workspace, relative to its root and written with
// forward slashes. Any path may contain "{platform}".
type Layout struct {
	Icon   string // Destination of the project icon.
	Banner string // Destination of the platform banner.
	Bundle string // Destination of a single bundle file.
	Assets string // Directory receiving an asset folder's contents.
	Recipe string // Build recipe expected in the toolchain template.
}

// The layout the toolchain templates ship with.
var DefaultLayout = Layout{
	Icon:   "gfx/icon.png",
	Banner: "gfx/{platform}/banner.png",
	Bundle: "romfs/project.sb3",
	Assets: "romfs",
	Recipe: "docker/Dockerfile.{platform}",
}

// Returns rel under workspace with the platform substituted.
func (l Layout) resolve(workspace, rel, platform string) string {
	rel = strings.ReplaceAll(rel, platformToken, platform)
	return filepath.Join(workspace, filepath.FromSlash(rel))
}
