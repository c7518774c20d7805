package engine

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/fault"
)

var (
	ErrEngineUnavailable = errors.New("container engine unavailable")
	ErrBuildFailed       = errors.New("build process failed")
	ErrLaunch            = errors.New("build process could not start")
)

// A build process that ran and exited with a non-zero status.
//
// Matches [ErrBuildFailed] and [fault.ErrProcess].
type ProcessFailedError struct {
	ExitCode int    // Exit status of the engine process.
	Stdout   string // Everything written to standard output.
	Stderr   string // Everything written to standard error.
}

func (e *ProcessFailedError) Error() string {
	return fmt.Sprintf("%s: exit status %d", ErrBuildFailed, e.ExitCode)
}

func (e *ProcessFailedError) Is(target error) bool {
	return target == ErrBuildFailed || target == fault.ErrProcess
}

// A build process that could not be started or waited for.
//
// Matches [ErrLaunch] and [fault.ErrProcess], and unwraps to the cause.
type LaunchError struct {
	Command string // Executable that was started.
	Err     error  // Underlying error.
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrLaunch, e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

func (e *LaunchError) Is(target error) bool {
	return target == ErrLaunch || target == fault.ErrProcess
}

// Builds an engine-unavailable error marked as an environment failure.
func unavailable(cause error, detail string) error {
	if cause == nil {
		cause = errors.New(detail)
		detail = ""
	}
	return fault.Wrap(cause, ErrEngineUnavailable, fault.ErrEnvironment, detail)
}
