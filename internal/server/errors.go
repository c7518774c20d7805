package server

import "github.com/cockroachdb/errors"

var (
	ErrServer       = errors.New("server error")
	ErrNotRunning   = errors.New("daemon is not running")
	ErrBadRequest   = errors.New("bad request")
	ErrUnexpected   = errors.New("unexpected response")
	ErrRemoteFailed = errors.New("daemon reported an error")
)
