package phase

import (
	"fmt"
	"slices"
	"time"
)

// Guard is a precondition checked before entering a specific target phase.
// It returns nil to allow the transition or an error whose message is the
// human-readable failure reason surfaced to the orchestrator.
//
// Guards are keyed by target phase, not by edge: the same precondition
// applies regardless of which phase is being left.
type Guard func(*State) error

// Machine describes one mode's phase state machine: the closed transition
// table, the guards, and the distinguished phases the executor needs to
// know about. A Machine is immutable after construction and safe to share.
type Machine struct {
	// Mode is the mode label stamped into every state document
	// (e.g. "autopilot", "pipeline").
	Mode string

	// Phases lists every phase in the machine, in lifecycle order.
	Phases []Phase

	// Initial is the phase a freshly initialized state starts in.
	Initial Phase

	// Table is the single source of truth for transition legality.
	// A transition from -> to is legal iff to is in Table[from].
	// Terminal phases (Complete, Failed) must map to empty sets; the
	// Cancelled entry lists the resume targets.
	Table map[Phase][]Phase

	// Guards maps target phases to their entry precondition. Transitions
	// into phases with no declared guard always pass.
	Guards map[Phase]Guard

	// Fix is the phase whose entry increments FixLoop.Attempt.
	Fix Phase

	// Complete, Failed, and Cancelled are the terminal phases.
	Complete  Phase
	Failed    Phase
	Cancelled Phase

	clock func() time.Time
}

// Option customizes a Machine.
type Option func(*Machine)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMachine validates a machine definition and applies options.
// It returns an error if the transition table is not closed over Phases or
// if a terminal phase has outgoing edges.
func NewMachine(def Machine, opts ...Option) (*Machine, error) {
	m := def
	m.clock = time.Now
	for _, opt := range opts {
		opt(&m)
	}
	if m.Mode == "" {
		return nil, fmt.Errorf("phase machine: mode label is required")
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Machine) validate() error {
	if !slices.Contains(m.Phases, m.Initial) {
		return fmt.Errorf("phase machine %s: initial phase %q not declared", m.Mode, m.Initial)
	}
	for _, p := range []Phase{m.Complete, m.Failed, m.Cancelled, m.Fix} {
		if !slices.Contains(m.Phases, p) {
			return fmt.Errorf("phase machine %s: phase %q not declared", m.Mode, p)
		}
	}
	for from, targets := range m.Table {
		if !slices.Contains(m.Phases, from) {
			return fmt.Errorf("phase machine %s: table references undeclared phase %q", m.Mode, from)
		}
		for _, to := range targets {
			if !slices.Contains(m.Phases, to) {
				return fmt.Errorf("phase machine %s: table edge %s -> %s targets undeclared phase", m.Mode, from, to)
			}
		}
	}
	// Terminal phases have no outgoing edges. Cancelled is allowed a
	// resume set, so it is exempt.
	for _, terminal := range []Phase{m.Complete, m.Failed} {
		if len(m.Table[terminal]) != 0 {
			return fmt.Errorf("phase machine %s: terminal phase %q has outgoing transitions", m.Mode, terminal)
		}
	}
	return nil
}

// AllowedNext returns the set of phases reachable directly from the given
// phase. Terminal phases return an empty set.
func (m *Machine) AllowedNext(p Phase) []Phase {
	return slices.Clone(m.Table[p])
}

// CanTransition checks whether a transition from one phase to another is
// legal per the table, ignoring guards.
func (m *Machine) CanTransition(from, to Phase) bool {
	return slices.Contains(m.Table[from], to)
}

// IsTerminal reports whether the phase ends the run. Cancelled counts as
// terminal for activity purposes even though it has resume edges.
func (m *Machine) IsTerminal(p Phase) bool {
	return p == m.Complete || p == m.Failed || p == m.Cancelled
}

// ResumeTargets returns the phases a cancelled session may resume into.
func (m *Machine) ResumeTargets() []Phase {
	return m.AllowedNext(m.Cancelled)
}

// NewState creates a fresh state document in the machine's initial phase.
// The initial phase is recorded as the first history entry.
func (m *Machine) NewState(sessionID string) *State {
	now := m.now()
	return &State{
		SchemaVersion: SchemaVersion,
		SessionID:     sessionID,
		Mode:          m.Mode,
		Phase:         m.Initial,
		PhaseHistory: []HistoryEntry{
			{Phase: m.Initial, EnteredAt: now, Reason: "init"},
		},
		Active:    true,
		Artifacts: make(map[string]string),
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (m *Machine) now() time.Time {
	if m.clock == nil {
		return time.Now()
	}
	return m.clock()
}
