package protocol

import "github.com/cockroachdb/errors"

var (
	ErrDecode          = errors.New("malformed message")
	ErrVersionMismatch = errors.New("protocol version mismatch")
)
