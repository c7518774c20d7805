package main

import (
	"log/slog"
	"os"

	"github.com/scratcheverywhere/sebuild/internal"
	"github.com/scratcheverywhere/sebuild/internal/cli"
)

// The entry point for sebuild.
//
// Initializes logging, displays startup information, and executes the root
// command. If any error occurs during execution, it exits with a code that
// reflects the error's category.
func main() {
	slog.SetDefault(internal.NewLogger(os.Stderr))

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("sebuild is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(cli.ExitCode(err))
	}
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
