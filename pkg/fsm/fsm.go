// Package fsm provides a small typed state machine.
//
// A Machine is configured with a table of states, each listing the
// transitions it allows and the state each one leads to. A special Any
// configuration supplies defaults that every state inherits; a state's own
// entry for the same transition name overrides the Any target.
//
// Triggering a transition runs the departing state's OnExit hook, switches
// state, records history, notifies subscribers and finally runs the arriving
// state's OnEnter hook. Hooks may trigger further transitions. Hook errors are
// logged and never abort a transition that has already been accepted.
//
// A Machine is not safe for concurrent use; callers serialize access.
package fsm

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-commentator/pkg/event"
)

// Transition describes one accepted state change.
type Transition[S, T comparable] struct {
	From    S
	To      S
	Name    T
	Payload any
}

// Hook runs on state entry or exit.
type Hook[S, T comparable] func(tr Transition[S, T]) error

// StateConfig configures a single state.
type StateConfig[S, T comparable] struct {
	OnEnter Hook[S, T]
	OnExit  Hook[S, T]

	// Allow maps a transition name to its target state.
	Allow map[T]S

	// Ignore lists transitions that are silently dropped when not allowed.
	Ignore []T
}

// Config holds the full machine definition.
type Config[S, T comparable] struct {
	States map[S]StateConfig[S, T]

	// Any is merged into every state.
	Any StateConfig[S, T]

	// OnInvalid handles a transition the current state does not declare.
	// Defaults to returning *InvalidTransitionError.
	OnInvalid func(from S, name T) error

	// HistoryLimit caps the retained history. Zero keeps everything.
	HistoryLimit int

	Logger *slog.Logger
}

// InvalidTransitionError is returned when a transition is not declared for
// the current state.
type InvalidTransitionError struct {
	From any
	Name any
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("fsm: transition %v not allowed from state %v", e.Name, e.From)
}

// Machine is a typed state machine.
type Machine[S, T comparable] struct {
	current S
	cfg     Config[S, T]
	logger  *slog.Logger

	history     []Transition[S, T]
	transitions *event.Dispatcher[Transition[S, T]]
}

// New creates a machine in the initial state. The initial state's OnEnter is
// not run.
func New[S, T comparable](initial S, cfg Config[S, T]) *Machine[S, T] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OnInvalid == nil {
		cfg.OnInvalid = func(from S, name T) error {
			return &InvalidTransitionError{From: from, Name: name}
		}
	}
	return &Machine[S, T]{
		current:     initial,
		cfg:         cfg,
		logger:      logger.With("component", "fsm"),
		transitions: event.New[Transition[S, T]](),
	}
}

// Current returns the active state.
func (m *Machine[S, T]) Current() S {
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine[S, T]) Is(s S) bool {
	return m.current == s
}

// Can reports whether name is declared for the current state, either
// directly or through Any.
func (m *Machine[S, T]) Can(name T) bool {
	_, ok := m.target(name)
	return ok
}

// Allowed returns the merged transition table for the current state.
func (m *Machine[S, T]) Allowed() map[T]S {
	merged := make(map[T]S, len(m.cfg.Any.Allow))
	for name, to := range m.cfg.Any.Allow {
		merged[name] = to
	}
	for name, to := range m.cfg.States[m.current].Allow {
		merged[name] = to
	}
	return merged
}

// Trigger performs the named transition.
func (m *Machine[S, T]) Trigger(name T, payload any) error {
	to, ok := m.target(name)
	if !ok {
		if m.ignored(name) {
			m.logger.Debug("transition ignored", "from", m.current, "transition", name)
			return nil
		}
		return m.cfg.OnInvalid(m.current, name)
	}

	tr := Transition[S, T]{From: m.current, To: to, Name: name, Payload: payload}

	if exit := m.cfg.States[tr.From].OnExit; exit != nil {
		if err := exit(tr); err != nil {
			m.logger.Error("exit hook failed", "state", tr.From, "transition", name, "error", err)
		}
	}

	m.current = to
	m.record(tr)
	m.logger.Debug("transition", "from", tr.From, "to", tr.To, "transition", name)
	m.transitions.Dispatch(tr)

	if enter := m.cfg.States[to].OnEnter; enter != nil {
		if err := enter(tr); err != nil {
			m.logger.Error("enter hook failed", "state", to, "transition", name, "error", err)
		}
	}
	return nil
}

// History returns a copy of the recorded transitions, oldest first.
func (m *Machine[S, T]) History() []Transition[S, T] {
	out := make([]Transition[S, T], len(m.history))
	copy(out, m.history)
	return out
}

// Transitions returns the dispatcher notified after every state change and
// before the arriving state's OnEnter runs.
func (m *Machine[S, T]) Transitions() *event.Dispatcher[Transition[S, T]] {
	return m.transitions
}

func (m *Machine[S, T]) target(name T) (S, bool) {
	if to, ok := m.cfg.States[m.current].Allow[name]; ok {
		return to, true
	}
	to, ok := m.cfg.Any.Allow[name]
	return to, ok
}

func (m *Machine[S, T]) ignored(name T) bool {
	for _, n := range m.cfg.States[m.current].Ignore {
		if n == name {
			return true
		}
	}
	for _, n := range m.cfg.Any.Ignore {
		if n == name {
			return true
		}
	}
	return false
}

func (m *Machine[S, T]) record(tr Transition[S, T]) {
	m.history = append(m.history, tr)
	if limit := m.cfg.HistoryLimit; limit > 0 && len(m.history) > limit {
		m.history = append(m.history[:0:0], m.history[len(m.history)-limit:]...)
	}
}
