package toolchain

import "github.com/cockroachdb/errors"

var (
	ErrInvalidVersion    = errors.New("invalid version")
	ErrStore             = errors.New("version store operation failed")
	ErrNotInstalled      = errors.New("toolchain version is not installed")
	ErrRemoteListing     = errors.New("failed to list remote versions")
	ErrDownload          = errors.New("toolchain download failed")
	ErrDigestMismatch    = errors.New("toolchain archive digest mismatch")
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrExtract           = errors.New("toolchain extraction failed")
	ErrCacheConsistency  = errors.New("no extracted folder matches the version")
)
