package session

import (
	"errors"
	"fmt"
	"sync"
)

// State is a step of the download pipeline.
type State string

const (
	// StateIdle means no download was started; navigation is allowed.
	StateIdle State = "idle"
	// StateResolving means the resolver call is in flight.
	StateResolving State = "resolving"
	// StateMetadataFetch means the metadata call is in flight.
	StateMetadataFetch State = "metadata"
	// StateDelivering means the audio is being sent to Telegram.
	StateDelivering State = "delivering"
	// StateDone means the audio was delivered.
	StateDone State = "done"
	// StateFailed means the pipeline stopped with an error reported to the user.
	StateFailed State = "failed"
)

// IsFinished reports whether s is terminal.
func (s State) IsFinished() bool {
	return s == StateDone || s == StateFailed
}

// IsActive reports whether a pipeline is running in s.
func (s State) IsActive() bool {
	switch s {
	case StateResolving, StateMetadataFetch, StateDelivering:
		return true
	}
	return false
}

var transitions = map[State][]State{
	StateIdle:          {StateResolving},
	StateResolving:     {StateMetadataFetch, StateFailed},
	StateMetadataFetch: {StateDelivering, StateFailed},
	StateDelivering:    {StateDone, StateFailed},
}

// ErrIllegalTransition is wrapped by every rejected transition.
var ErrIllegalTransition = errors.New("illegal pipeline transition")

// Machine guards pipeline state. The zero value is an idle machine.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine returns an idle machine.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current()
}

func (m *Machine) current() State {
	if m.state == "" {
		return StateIdle
	}
	return m.state
}

// Advance moves to next or returns an error wrapping ErrIllegalTransition.
func (m *Machine) Advance(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advanceLocked(next)
}

func (m *Machine) advanceLocked(next State) error {
	cur := m.current()
	for _, allowed := range transitions[cur] {
		if allowed == next {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, cur, next)
}

// Begin performs Idle -> Resolving. It is the lock taken before any external call.
func (m *Machine) Begin() error {
	return m.Advance(StateResolving)
}

// Fail moves an active machine to Failed. Finished or idle machines are left as is.
func (m *Machine) Fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current().IsActive() {
		m.state = StateFailed
	}
}
