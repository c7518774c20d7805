package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "sebuild"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the toolchain version store.
//
//	Linux:   $XDG_DATA_HOME/sebuild/versions
//	macOS:   ~/Library/Application Support/sebuild/versions
//	Windows: %LOCALAPPDATA%\sebuild\versions
func Versions() string {
	return filepath.Join(xdg.DataHome, appName, "versions")
}

// Parent directory for per-build workspaces.
//
//	Linux:   $XDG_CACHE_HOME/sebuild/workspaces
//	macOS:   ~/Library/Caches/sebuild/workspaces
func Workspaces() string {
	return filepath.Join(xdg.CacheHome, appName, "workspaces")
}

// Path to the advisory lock file that keeps builds on this machine serial.
func BuildLock() string {
	return filepath.Join(xdg.CacheHome, appName, "build.lock")
}

// Path to the optional JSON configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/sebuild/config.json
func Config() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/sebuild or /run/user/<uid>/sebuild
//	macOS:   ~/Library/Caches/sebuild/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, appName)
	}
	return filepath.Join(xdg.CacheHome, appName, "run")
}

// Default path to the Unix domain socket of the build daemon.
func Socket() string {
	return filepath.Join(Runtime(), "sebuild.sock")
}

// Default path to the daemon PID file.
func PIDFile() string {
	return filepath.Join(Runtime(), "sebuild.pid")
}
