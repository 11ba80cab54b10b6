package phase

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying transition failures. The Result returned by
// Transition wraps one of these so callers can branch with errors.Is while
// still surfacing the human-readable Reason string.
var (
	// ErrIllegalTransition indicates the target is not reachable from the
	// current phase per the transition table. Recoverable: the caller may
	// retry with a different target.
	ErrIllegalTransition = errors.New("illegal phase transition")

	// ErrGuardFailed indicates an entry precondition was not met.
	// Recoverable: the caller fixes the precondition and retries.
	ErrGuardFailed = errors.New("phase guard failed")

	// ErrFixLoopExceeded indicates the bounded fix loop was exhausted.
	// Fatal: the returned state has already been forced to failed.
	ErrFixLoopExceeded = errors.New("fix loop exceeded max attempts")

	// ErrResumeNotPreserved indicates an attempt to resume a cancelled
	// session whose cancellation did not preserve it for resume.
	// Recoverable only by initializing a fresh session.
	ErrResumeNotPreserved = errors.New("cancelled session not preserved for resume")
)

// FixLoopExceededReason is the fixed reason string recorded in history and
// results when the fix-loop bound forces a transition to failed.
const FixLoopExceededReason = "Fix loop exceeded max_attempts"

// CancelRequestedReason tags history entries appended by RequestCancel.
const CancelRequestedReason = "cancel-requested"

// Result is the outcome of a transition attempt. No transition ever panics
// or returns a bare error across this boundary: failures are reported as
// OK == false with a Reason and a classifying Err.
type Result struct {
	// OK is true when the requested transition was applied.
	OK bool

	// State is the resulting state. On guard or legality failures it is
	// the unchanged input state; on fix-loop overflow it is the state
	// forced to failed.
	State *State

	// Reason is the human-readable failure reason. Empty on success.
	Reason string

	// Err wraps the sentinel classifying the failure. Nil on success.
	Err error

	// Fatal is true when the failure terminated the run (fix-loop
	// overflow). The caller must not retry the transition.
	Fatal bool
}

// Transition attempts to move the state into the target phase, applying the
// transition table, guards, history bookkeeping, fix-loop bounding, and
// terminal side effects.
//
// Failure semantics: legality and guard failures leave the state untouched
// and are recoverable. Fix-loop overflow forcibly drives the state to
// failed regardless of the requested target and is fatal.
func (m *Machine) Transition(st *State, target Phase, reason string) Result {
	if st == nil {
		return Result{
			State:  nil,
			Reason: "no state to transition",
			Err:    ErrIllegalTransition,
		}
	}

	resuming := false
	if st.Phase == m.Cancelled && m.CanTransition(m.Cancelled, target) {
		// Resume path: a guarded transition back into the forward graph.
		if !st.Cancel.PreserveForResume {
			return Result{
				State:  st,
				Reason: fmt.Sprintf("cannot resume %s session %s: preserve_for_resume is false", m.Mode, st.SessionID),
				Err:    ErrResumeNotPreserved,
			}
		}
		resuming = true
	} else if !m.CanTransition(st.Phase, target) {
		return Result{
			State:  st,
			Reason: fmt.Sprintf("Illegal transition: %s -> %s", st.Phase, target),
			Err:    ErrIllegalTransition,
		}
	}

	// Guards run for every transition into a guarded target, including
	// resumes, and must not observe a partially mutated state.
	if guard := m.Guards[target]; guard != nil {
		if err := guard(st); err != nil {
			return Result{
				State:  st,
				Reason: err.Error(),
				Err:    fmt.Errorf("%w: %v", ErrGuardFailed, err),
			}
		}
	}

	now := m.now()
	if resuming {
		st.Active = true
		st.CompletedAt = nil
		st.Cancel.Requested = false
	}

	st.PhaseHistory = append(st.PhaseHistory, HistoryEntry{
		Phase:     target,
		EnteredAt: now,
		Reason:    reason,
	})
	st.Phase = target

	if target == m.Fix {
		st.FixLoop.Attempt++
		if reason != "" {
			st.FixLoop.LastFailureReason = reason
		}
	}

	// The overflow check runs after every transition, not just fix-loop
	// ones, so a runaway counter written by any path is caught on the
	// next call rather than persisting silently.
	if st.FixLoop.MaxAttempts > 0 && st.FixLoop.Attempt > st.FixLoop.MaxAttempts {
		st.Phase = m.Failed
		st.Active = false
		completed := now
		st.CompletedAt = &completed
		st.PhaseHistory = append(st.PhaseHistory, HistoryEntry{
			Phase:     m.Failed,
			EnteredAt: now,
			Reason:    FixLoopExceededReason,
		})
		st.UpdatedAt = now
		return Result{
			State:  st,
			Reason: FixLoopExceededReason,
			Err:    ErrFixLoopExceeded,
			Fatal:  true,
		}
	}

	if m.IsTerminal(target) {
		st.Active = false
		completed := now
		st.CompletedAt = &completed
	}

	st.UpdatedAt = now
	return Result{OK: true, State: st}
}

// RequestCancel force-transitions the state to cancelled, recording whether
// the session may later be resumed. Cancellation is a side-channel
// interrupt: it bypasses the transition table and guards on purpose so a
// user abort can never be blocked by a stale precondition.
//
// Calling RequestCancel on a state that already reached complete or failed
// is a no-op: finished runs stay finished. PreserveForResume is always set
// explicitly, never left as a stale prior value.
func (m *Machine) RequestCancel(st *State, preserveForResume bool) *State {
	if st == nil {
		return nil
	}
	if st.Phase == m.Complete || st.Phase == m.Failed {
		return st
	}

	now := m.now()
	st.Cancel.Requested = true
	st.Cancel.RequestedAt = &now
	st.Cancel.PreserveForResume = preserveForResume
	st.Phase = m.Cancelled
	st.Active = false
	completed := now
	st.CompletedAt = &completed
	st.PhaseHistory = append(st.PhaseHistory, HistoryEntry{
		Phase:     m.Cancelled,
		EnteredAt: now,
		Reason:    CancelRequestedReason,
	})
	st.UpdatedAt = now
	return st
}
