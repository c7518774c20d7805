package build

import "github.com/cockroachdb/errors"

var (
	ErrBuildInProgress     = errors.New("another build is in progress")
	ErrInvalidTransition   = errors.New("invalid build state transition")
	ErrFileSystemOperation = errors.New("file system operation failed")
)
