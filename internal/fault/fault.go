// Package fault defines the error categories shared by the build core.
//
// Concrete errors live in the package that raises them and are marked with
// one of these categories via [errors.Mark], so callers can branch on either
// the precise error or its category:
//
//	if errors.Is(err, fault.ErrEnvironment) {
//	    // ask the user to start the container engine and retry
//	}
//
// None of these are retried anywhere in the core. Retry is caller policy.
package fault

import "github.com/cockroachdb/errors"

var (
	ErrPrecondition     = errors.New("precondition failed")
	ErrEnvironment      = errors.New("environment not ready")
	ErrProcess          = errors.New("process error")
	ErrNetwork          = errors.New("network error")
	ErrCacheConsistency = errors.New("toolchain cache inconsistent")
)

// Marks err as belonging to category. Returns nil for a nil err.
func As(err error, category error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, category)
}

// Wraps cause with the message of kind and marks the result with kind and,
// if non-nil, category.
//
// The cause stays in the chain, so the underlying transport or I/O error
// remains inspectable with [errors.Is] and [errors.As]. Detail, if not
// empty, is added to the message in parentheses.
func Wrap(cause, kind, category error, detail string) error {
	if cause == nil {
		return nil
	}

	msg := kind.Error()
	if detail != "" {
		msg += " (" + detail + ")"
	}

	err := errors.Mark(errors.Wrap(cause, msg), kind)
	if category != nil {
		err = errors.Mark(err, category)
	}
	return err
}

// Category names, as used on the wire and in exit codes.
var categories = []struct {
	name string
	err  error
}{
	{"precondition", ErrPrecondition},
	{"environment", ErrEnvironment},
	{"process", ErrProcess},
	{"network", ErrNetwork},
	{"cache-consistency", ErrCacheConsistency},
}

// Returns the name of the first category err belongs to, or "" if none.
func Category(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return ""
}

// Returns the category sentinel for a name produced by [Category], or nil.
func ByName(name string) error {
	for _, c := range categories {
		if c.name == name {
			return c.err
		}
	}
	return nil
}
