package project

import "github.com/cockroachdb/errors"

var (
	ErrInvalidProject  = errors.New("invalid project")
	ErrInvalidManifest = errors.New("invalid project manifest")
)
