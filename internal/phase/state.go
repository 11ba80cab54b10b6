// Package phase implements the mode lifecycle state machine used by
// overdrive's behavioral modes (autopilot, team pipeline). It defines the
// persisted session state document, the transition table abstraction, guard
// evaluation, and the transition executor that enforces the fix-loop bound.
//
// The package is deliberately pure: it mutates in-memory state and leaves
// persistence to the state package. All public entry points return result
// values rather than panicking, because the inputs (agent-reported counters,
// host-supplied session files) are untrusted.
package phase

import (
	"time"
)

// SchemaVersion is the current version of the persisted state document.
// Writers always stamp it; readers treat other versions as candidates for
// migration rather than errors.
const SchemaVersion = 1

// Phase represents a discrete stage in a mode's lifecycle.
// Each mode defines its own phase labels; the topology is shared.
type Phase string

// HistoryEntry records a single entry into a phase. The history is
// append-only and provides the audit trail for "how did we get here".
type HistoryEntry struct {
	// Phase is the phase that was entered.
	Phase Phase `json:"phase"`

	// EnteredAt records when the phase was entered.
	EnteredAt time.Time `json:"entered_at"`

	// Reason provides optional context for the entry. It is particularly
	// useful for entries into failed or cancelled.
	Reason string `json:"reason,omitempty"`
}

// ExecutionStats holds agent-reported progress counters.
//
// The fields are float64 on purpose: they are populated from untrusted JSON
// reported by external worker processes, and guards must be able to observe
// and reject NaN, infinities, negatives, and fractional values instead of
// letting them slip through integer truncation.
type ExecutionStats struct {
	TasksTotal     float64 `json:"tasks_total"`
	TasksCompleted float64 `json:"tasks_completed"`
	TasksFailed    float64 `json:"tasks_failed"`
	WorkersActive  float64 `json:"workers_active,omitempty"`
	WorkersTotal   float64 `json:"workers_total,omitempty"`
}

// FixLoop is the bounded-retry sub-state for the verify -> fix -> verify
// cycle. Attempt is incremented by the transition executor on every entry
// into the mode's fix phase.
type FixLoop struct {
	Attempt           int    `json:"attempt"`
	MaxAttempts       int    `json:"max_attempts"`
	LastFailureReason string `json:"last_failure_reason,omitempty"`
}

// CancelState records a cancellation request and whether the session may be
// resumed later.
type CancelState struct {
	Requested         bool       `json:"requested"`
	RequestedAt       *time.Time `json:"requested_at,omitempty"`
	PreserveForResume bool       `json:"preserve_for_resume"`
}

// State is the persisted session document for one mode run. One instance
// exists per (mode, session) pair. It must only be mutated through the
// Machine's Transition and RequestCancel methods so that the history and
// terminal-state invariants hold.
type State struct {
	SchemaVersion int    `json:"schema_version"`
	SessionID     string `json:"session_id"`
	Mode          string `json:"mode"`

	Phase        Phase          `json:"phase"`
	PhaseHistory []HistoryEntry `json:"phase_history"`

	// Active is true while the machine is running and false once a
	// terminal phase (complete, failed, cancelled) has been reached.
	Active bool `json:"active"`

	// Iteration counts whole-run restarts; MaxIterations bounds them.
	// These are logical retry bounds, not wall-clock timeouts.
	Iteration     int `json:"iteration"`
	MaxIterations int `json:"max_iterations"`

	// Artifacts maps logical names (plan_path, prd_path, ...) to file
	// paths produced by external planner/executor agents. The state
	// machine never opens these paths; guards only check presence.
	Artifacts map[string]string `json:"artifacts,omitempty"`

	Execution ExecutionStats `json:"execution"`
	FixLoop   FixLoop        `json:"fix_loop"`
	Cancel    CancelState    `json:"cancel"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CurrentEntry returns the most recent history entry, or nil if the history
// is empty. For any state produced by this package the returned entry's
// phase equals State.Phase.
func (s *State) CurrentEntry() *HistoryEntry {
	if len(s.PhaseHistory) == 0 {
		return nil
	}
	return &s.PhaseHistory[len(s.PhaseHistory)-1]
}

// SetArtifact records an externally produced artifact path under a logical
// name. Empty names are ignored.
func (s *State) SetArtifact(name, path string) {
	if name == "" {
		return
	}
	if s.Artifacts == nil {
		s.Artifacts = make(map[string]string)
	}
	s.Artifacts[name] = path
}

// Artifact returns the recorded path for a logical artifact name, or the
// empty string if it has not been set.
func (s *State) Artifact(name string) string {
	if s.Artifacts == nil {
		return ""
	}
	return s.Artifacts[name]
}
