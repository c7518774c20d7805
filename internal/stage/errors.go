package stage

import "github.com/cockroachdb/errors"

var (
	ErrVersionNotInstalled = errors.New("toolchain version not installed")
	ErrRecipeNotFound      = errors.New("build recipe not found")
	ErrMissingAssetBundle  = errors.New("missing asset bundle")
	ErrWorkspace           = errors.New("workspace error")
	ErrCopy                = errors.New("copy failed")
)
