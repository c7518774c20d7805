package build

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestAllowedTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateStaging, true},
		{StateIdle, StateBuilding, false},
		{StateIdle, StateFailed, false},
		{StateStaging, StateAwaitingEngine, true},
		{StateStaging, StateBuilding, false},
		{StateStaging, StateFailed, true},
		{StateAwaitingEngine, StateBuilding, true},
		{StateAwaitingEngine, StateFailed, true},
		{StateAwaitingEngine, StateSucceeded, false},
		{StateBuilding, StateSucceeded, true},
		{StateBuilding, StateFailed, true},
		{StateSucceeded, StateIdle, true},
		{StateFailed, StateIdle, true},
		{StateFailed, StateStaging, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := isAllowedTransition(tt.from, tt.to); got != tt.want {
				t.Fatalf("isAllowedTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMachineTransition(t *testing.T) {
	var seen []State
	m := &machine{observer: func(_, to State) { seen = append(seen, to) }}

	if err := m.transition(StateIdle, StateStaging); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := m.transition(StateIdle, StateStaging); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("stale from state error = %v, want ErrInvalidTransition", err)
	}
	if err := m.transition(StateStaging, StateSucceeded); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("disallowed transition error = %v, want ErrInvalidTransition", err)
	}
	if m.get() != StateStaging {
		t.Fatalf("state = %s after rejected transitions", m.get())
	}

	if !m.advance(StateFailed) {
		t.Fatal("advance to failed was refused")
	}
	if m.advance(StateSucceeded) {
		t.Fatal("advance from failed to succeeded was allowed")
	}
	if !m.advance(StateIdle) {
		t.Fatal("advance to idle was refused")
	}

	want := []State{StateStaging, StateFailed, StateIdle}
	if len(seen) != len(want) {
		t.Fatalf("observed %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("observed %v, want %v", seen, want)
		}
	}
}

func TestStateIsTerminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateStaging, StateAwaitingEngine, StateBuilding} {
		if s.IsTerminal() {
			t.Errorf("%s is terminal", s)
		}
	}
	for _, s := range []State{StateSucceeded, StateFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s is not terminal", s)
		}
	}
}
