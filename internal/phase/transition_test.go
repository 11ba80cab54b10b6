package phase

import (
	"errors"
	"math"
	"testing"
)

// driveTo walks a state through legal transitions, satisfying guards along
// the way, until it reaches the wanted phase.
func driveTo(t *testing.T, m *Machine, st *State, target Phase) {
	t.Helper()
	route := map[Phase][]Phase{
		"execution":    {"execution"},
		"verification": {"execution", "verification"},
		"fix":          {"execution", "verification", "fix"},
		"complete":     {"execution", "verification", "complete"},
	}
	st.SetArtifact("plan_path", "/tmp/plan.md")
	st.Execution.TasksTotal = 4
	st.Execution.TasksCompleted = 4
	for _, hop := range route[target] {
		res := m.Transition(st, hop, "")
		if !res.OK {
			t.Fatalf("drive to %s: hop %s failed: %s", target, hop, res.Reason)
		}
	}
}

func TestTransitionHappyPath(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	driveTo(t, m, st, "complete")

	if st.Phase != "complete" {
		t.Fatalf("phase = %s, want complete", st.Phase)
	}
	if st.Active {
		t.Error("completed state should be inactive")
	}
	if st.CompletedAt == nil {
		t.Error("completed state should carry completed_at")
	}

	want := []Phase{"plan", "execution", "verification", "complete"}
	if len(st.PhaseHistory) != len(want) {
		t.Fatalf("history length = %d, want %d", len(st.PhaseHistory), len(want))
	}
	for i, entry := range st.PhaseHistory {
		if entry.Phase != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, entry.Phase, want[i])
		}
		if entry.EnteredAt.IsZero() {
			t.Errorf("history[%d] has zero timestamp", i)
		}
		if i > 0 && entry.EnteredAt.Before(st.PhaseHistory[i-1].EnteredAt) {
			t.Errorf("history[%d] entered before history[%d]", i, i-1)
		}
	}
}

func TestTransitionIllegal(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")

	res := m.Transition(st, "verification", "")
	if res.OK {
		t.Fatal("expected rejection")
	}
	if res.Reason != "Illegal transition: plan -> verification" {
		t.Errorf("reason = %q", res.Reason)
	}
	if !errors.Is(res.Err, ErrIllegalTransition) {
		t.Errorf("err = %v, want ErrIllegalTransition", res.Err)
	}
	if res.Fatal {
		t.Error("illegal transition must not be fatal")
	}
	if st.Phase != "plan" || len(st.PhaseHistory) != 1 {
		t.Error("rejected transition must leave state unchanged")
	}
}

func TestTransitionFromTerminalRejected(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	driveTo(t, m, st, "complete")

	res := m.Transition(st, "plan", "")
	if res.OK {
		t.Fatal("expected rejection out of terminal phase")
	}
	if res.Reason != "Illegal transition: complete -> plan" {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestTransitionGuardFailureLeavesStateUnchanged(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")

	// No plan_path artifact set.
	res := m.Transition(st, "execution", "")
	if res.OK {
		t.Fatal("expected guard rejection")
	}
	if !errors.Is(res.Err, ErrGuardFailed) {
		t.Errorf("err = %v, want ErrGuardFailed", res.Err)
	}
	if res.Reason != "missing required artifact: one of plan_path must be set" {
		t.Errorf("reason = %q", res.Reason)
	}
	if st.Phase != "plan" || len(st.PhaseHistory) != 1 || st.CompletedAt != nil {
		t.Error("guard rejection must leave state unchanged")
	}
}

func TestTransitionVerificationGuard(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	driveTo(t, m, st, "execution")

	st.Execution.TasksTotal = 5
	st.Execution.TasksCompleted = 3
	res := m.Transition(st, "verification", "")
	if res.OK {
		t.Fatal("expected guard rejection")
	}
	if res.Reason != "tasks_completed (3) < tasks_total (5): execution has not finished" {
		t.Errorf("reason = %q", res.Reason)
	}

	st.Execution.TasksCompleted = math.NaN()
	res = m.Transition(st, "verification", "")
	if res.OK {
		t.Fatal("expected NaN rejection")
	}
	if res.Reason != "tasks_completed must be a non-negative finite integer, got NaN" {
		t.Errorf("reason = %q", res.Reason)
	}

	st.Execution.TasksCompleted = 5
	if res = m.Transition(st, "verification", ""); !res.OK {
		t.Fatalf("expected pass once counters are sane: %s", res.Reason)
	}
}

func TestFixLoopIncrementAndReason(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	st.FixLoop.MaxAttempts = 3
	driveTo(t, m, st, "verification")

	res := m.Transition(st, "fix", "tests failing in pkg/foo")
	if !res.OK {
		t.Fatalf("fix transition rejected: %s", res.Reason)
	}
	if st.FixLoop.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", st.FixLoop.Attempt)
	}
	if st.FixLoop.LastFailureReason != "tests failing in pkg/foo" {
		t.Errorf("last failure reason = %q", st.FixLoop.LastFailureReason)
	}
}

func TestFixLoopOverflowIsFatal(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	st.FixLoop.MaxAttempts = 2
	driveTo(t, m, st, "verification")

	for i := 0; i < 2; i++ {
		if res := m.Transition(st, "fix", "still broken"); !res.OK {
			t.Fatalf("fix %d rejected: %s", i+1, res.Reason)
		}
		if res := m.Transition(st, "verification", ""); !res.OK {
			t.Fatalf("reverify %d rejected: %s", i+1, res.Reason)
		}
	}

	res := m.Transition(st, "fix", "still broken")
	if res.OK {
		t.Fatal("expected overflow failure")
	}
	if !res.Fatal {
		t.Error("overflow must be fatal")
	}
	if !errors.Is(res.Err, ErrFixLoopExceeded) {
		t.Errorf("err = %v, want ErrFixLoopExceeded", res.Err)
	}
	if res.Reason != "Fix loop exceeded max_attempts" {
		t.Errorf("reason = %q", res.Reason)
	}
	if st.Phase != "failed" {
		t.Errorf("phase = %s, want failed", st.Phase)
	}
	if st.Active {
		t.Error("failed state should be inactive")
	}
	if st.CompletedAt == nil {
		t.Error("failed state should carry completed_at")
	}

	last := st.PhaseHistory[len(st.PhaseHistory)-1]
	if last.Phase != "failed" || last.Reason != FixLoopExceededReason {
		t.Errorf("last history entry = %+v", last)
	}
}

func TestFixLoopOverflowCaughtOnAnyTransition(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	st.FixLoop.MaxAttempts = 1
	driveTo(t, m, st, "verification")

	// A counter poisoned out of band is caught by the next transition
	// even though the target is not the fix phase.
	st.FixLoop.Attempt = 5
	res := m.Transition(st, "complete", "")
	if res.OK || !res.Fatal {
		t.Fatalf("expected fatal overflow, got %+v", res)
	}
	if st.Phase != "failed" {
		t.Errorf("phase = %s, want failed", st.Phase)
	}
}

func TestFixLoopUnboundedWhenMaxAttemptsZero(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	st.FixLoop.MaxAttempts = 0
	driveTo(t, m, st, "verification")

	for i := 0; i < 10; i++ {
		if res := m.Transition(st, "fix", "x"); !res.OK {
			t.Fatalf("fix %d rejected: %s", i+1, res.Reason)
		}
		if res := m.Transition(st, "verification", ""); !res.OK {
			t.Fatalf("reverify %d rejected: %s", i+1, res.Reason)
		}
	}
	if st.Phase != "verification" {
		t.Errorf("phase = %s, want verification", st.Phase)
	}
}

func TestRequestCancel(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	driveTo(t, m, st, "execution")

	st = m.RequestCancel(st, true)
	if st.Phase != "cancelled" {
		t.Fatalf("phase = %s, want cancelled", st.Phase)
	}
	if st.Active {
		t.Error("cancelled state should be inactive")
	}
	if !st.Cancel.Requested || st.Cancel.RequestedAt == nil {
		t.Error("cancel block not populated")
	}
	if !st.Cancel.PreserveForResume {
		t.Error("preserve flag not recorded")
	}
	last := st.PhaseHistory[len(st.PhaseHistory)-1]
	if last.Phase != "cancelled" || last.Reason != CancelRequestedReason {
		t.Errorf("last history entry = %+v", last)
	}
}

func TestRequestCancelBypassesGuards(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")

	// Cancel from the initial phase, with no artifacts and no counters.
	st = m.RequestCancel(st, false)
	if st.Phase != "cancelled" {
		t.Errorf("phase = %s, want cancelled", st.Phase)
	}
	if st.Cancel.PreserveForResume {
		t.Error("preserve flag should be false")
	}
}

func TestRequestCancelNoOpOnFinishedRun(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	driveTo(t, m, st, "complete")
	historyLen := len(st.PhaseHistory)

	st = m.RequestCancel(st, true)
	if st.Phase != "complete" {
		t.Errorf("phase = %s, want complete", st.Phase)
	}
	if st.Cancel.Requested {
		t.Error("cancel must not mark a finished run")
	}
	if len(st.PhaseHistory) != historyLen {
		t.Error("cancel on finished run must not grow history")
	}
}

func TestResumePreserved(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	driveTo(t, m, st, "execution")
	st = m.RequestCancel(st, true)

	res := m.Transition(st, "execution", "picking back up")
	if !res.OK {
		t.Fatalf("resume rejected: %s", res.Reason)
	}
	if st.Phase != "execution" {
		t.Errorf("phase = %s, want execution", st.Phase)
	}
	if !st.Active {
		t.Error("resumed state should be active")
	}
	if st.CompletedAt != nil {
		t.Error("resumed state should clear completed_at")
	}
	if st.Cancel.Requested {
		t.Error("resumed state should clear cancel request")
	}
	if !st.Cancel.PreserveForResume {
		t.Error("preserve flag is part of the record and should survive resume")
	}
}

func TestResumeNotPreserved(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-9")
	driveTo(t, m, st, "execution")
	st = m.RequestCancel(st, false)

	res := m.Transition(st, "execution", "")
	if res.OK {
		t.Fatal("expected resume rejection")
	}
	if !errors.Is(res.Err, ErrResumeNotPreserved) {
		t.Errorf("err = %v, want ErrResumeNotPreserved", res.Err)
	}
	want := "cannot resume testmode session sess-9: preserve_for_resume is false"
	if res.Reason != want {
		t.Errorf("reason = %q, want %q", res.Reason, want)
	}
	if st.Phase != "cancelled" {
		t.Error("rejected resume must leave state cancelled")
	}
}

func TestResumeGuardStillApplies(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	driveTo(t, m, st, "execution")
	st = m.RequestCancel(st, true)

	// Resuming into execution requires the artifact guard to pass; strip
	// the artifact to prove the guard runs on resume.
	st.Artifacts = map[string]string{}
	res := m.Transition(st, "execution", "")
	if res.OK {
		t.Fatal("expected guard rejection on resume")
	}
	if !errors.Is(res.Err, ErrGuardFailed) {
		t.Errorf("err = %v, want ErrGuardFailed", res.Err)
	}
	if st.Phase != "cancelled" || st.Active {
		t.Error("rejected resume must leave state cancelled and inactive")
	}
}

func TestResumeOutsideResumeSetRejected(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")
	driveTo(t, m, st, "execution")
	st = m.RequestCancel(st, true)

	res := m.Transition(st, "verification", "")
	if res.OK {
		t.Fatal("expected rejection: verification is not a resume target")
	}
	if res.Reason != "Illegal transition: cancelled -> verification" {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestTransitionNilState(t *testing.T) {
	m := newTestMachine(t)
	res := m.Transition(nil, "execution", "")
	if res.OK {
		t.Fatal("expected rejection for nil state")
	}
	if !errors.Is(res.Err, ErrIllegalTransition) {
		t.Errorf("err = %v", res.Err)
	}
}
