package build

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/scratcheverywhere/sebuild/internal/fault"
	"github.com/scratcheverywhere/sebuild/internal/paths"
)

// An advisory lock held on a file for the duration of a build.
type fileLock struct {
	f *os.File
}

// Opens path and takes an exclusive lock on it without waiting.
//
// Returns [ErrBuildInProgress] if another process holds the lock. An empty
// path returns a no-op lock.
func acquireLock(path string) (*fileLock, error) {
	if path == "" {
		return &fileLock{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return nil, fault.Wrap(err, ErrFileSystemOperation, nil, path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, paths.DefaultFileMode)
	if err != nil {
		return nil, fault.Wrap(err, ErrFileSystemOperation, nil, path)
	}

	if err := tryLock(f); err != nil {
		f.Close()
		if errors.Is(err, errLocked) {
			return nil, inProgress("lock " + path + " is held by another process")
		}
		return nil, fault.Wrap(err, ErrFileSystemOperation, nil, path)
	}

	return &fileLock{f: f}, nil
}

// Releases the lock and closes the file.
func (l *fileLock) release() error {
	if l.f == nil {
		return nil
	}
	if err := unlock(l.f); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

// Returned by tryLock when the file is locked elsewhere.
var errLocked = errors.New("file is locked")

// Builds an in-progress error marked as an environment failure.
func inProgress(detail string) error {
	return fault.As(errors.Wrap(ErrBuildInProgress, detail), fault.ErrEnvironment)
}
