package build

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Lifecycle position of a [Builder].
type State int

const (
	StateIdle State = iota
	StateStaging
	StateAwaitingEngine
	StateBuilding
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStaging:
		return "staging"
	case StateAwaitingEngine:
		return "awaiting engine"
	case StateBuilding:
		return "building"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reports whether the state ends a build attempt.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateStaging
	case StateStaging, StateAwaitingEngine:
		return to == from+1 || to == StateFailed
	case StateBuilding:
		return to == StateSucceeded || to == StateFailed
	case StateSucceeded, StateFailed:
		return to == StateIdle
	default:
		return false
	}
}

// Holds the current state and validates every change.
type machine struct {
	mu       sync.Mutex
	current  State
	observer func(from, to State)
}

func (m *machine) get() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Moves from the expected state to the next one.
//
// The expected prior state makes races observable: a mismatch is an error
// rather than a silent overwrite.
func (m *machine) transition(from, to State) error {
	m.mu.Lock()
	if m.current != from {
		cur := m.current
		m.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "expected %s, got %s", from, cur)
	}
	if !isAllowedTransition(from, to) {
		m.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
	}
	m.current = to
	observer := m.observer
	m.mu.Unlock()

	if observer != nil {
		observer(from, to)
	}
	return nil
}

// Moves to the given state from whatever state is current, if allowed.
// Reports whether it moved.
func (m *machine) advance(to State) bool {
	m.mu.Lock()
	from := m.current
	if !isAllowedTransition(from, to) {
		m.mu.Unlock()
		return false
	}
	m.current = to
	observer := m.observer
	m.mu.Unlock()

	if observer != nil {
		observer(from, to)
	}
	return true
}
