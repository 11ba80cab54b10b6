package phase

import (
	"testing"
	"time"
)

// testClock returns a deterministic clock that advances one second per call.
func testClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

// newTestMachine builds a small machine mirroring the shape every real mode
// uses: a forward chain, a verify/fix cycle, and terminals with a resume set.
func newTestMachine(t *testing.T, opts ...Option) *Machine {
	t.Helper()
	m, err := NewMachine(Machine{
		Mode:    "testmode",
		Phases:  []Phase{"plan", "execution", "verification", "fix", "complete", "failed", "cancelled"},
		Initial: "plan",
		Table: map[Phase][]Phase{
			"plan":         {"execution", "failed"},
			"execution":    {"verification", "failed"},
			"verification": {"fix", "complete", "failed"},
			"fix":          {"verification", "failed"},
			"complete":     {},
			"failed":       {},
			"cancelled":    {"plan", "execution"},
		},
		Guards: map[Phase]Guard{
			"execution":    RequireArtifact("plan_path"),
			"verification": RequireTasksVerifiable(),
		},
		Fix:       "fix",
		Complete:  "complete",
		Failed:    "failed",
		Cancelled: "cancelled",
	}, append([]Option{WithClock(testClock())}, opts...)...)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m
}

func TestNewMachineValidation(t *testing.T) {
	base := Machine{
		Mode:      "m",
		Phases:    []Phase{"a", "complete", "failed", "cancelled"},
		Initial:   "a",
		Table:     map[Phase][]Phase{"a": {"complete"}},
		Fix:       "a",
		Complete:  "complete",
		Failed:    "failed",
		Cancelled: "cancelled",
	}

	if _, err := NewMachine(base); err != nil {
		t.Errorf("valid machine rejected: %v", err)
	}

	t.Run("missing mode", func(t *testing.T) {
		def := base
		def.Mode = ""
		if _, err := NewMachine(def); err == nil {
			t.Error("expected error for missing mode")
		}
	})

	t.Run("undeclared initial", func(t *testing.T) {
		def := base
		def.Initial = "nope"
		if _, err := NewMachine(def); err == nil {
			t.Error("expected error for undeclared initial phase")
		}
	})

	t.Run("edge to undeclared phase", func(t *testing.T) {
		def := base
		def.Table = map[Phase][]Phase{"a": {"ghost"}}
		if _, err := NewMachine(def); err == nil {
			t.Error("expected error for edge targeting undeclared phase")
		}
	})

	t.Run("terminal with outgoing edges", func(t *testing.T) {
		def := base
		def.Table = map[Phase][]Phase{"a": {"complete"}, "failed": {"a"}}
		if _, err := NewMachine(def); err == nil {
			t.Error("expected error for terminal phase with outgoing edges")
		}
	})
}

func TestAllowedNextIsACopy(t *testing.T) {
	m := newTestMachine(t)
	next := m.AllowedNext("verification")
	if len(next) == 0 {
		t.Fatal("expected outgoing edges from verification")
	}
	next[0] = "mutated"
	if m.AllowedNext("verification")[0] == "mutated" {
		t.Error("AllowedNext leaked the internal slice")
	}
}

func TestIsTerminal(t *testing.T) {
	m := newTestMachine(t)
	for _, p := range []Phase{"complete", "failed", "cancelled"} {
		if !m.IsTerminal(p) {
			t.Errorf("IsTerminal(%s) = false, want true", p)
		}
	}
	for _, p := range []Phase{"plan", "execution", "verification", "fix"} {
		if m.IsTerminal(p) {
			t.Errorf("IsTerminal(%s) = true, want false", p)
		}
	}
}

func TestNewState(t *testing.T) {
	m := newTestMachine(t)
	st := m.NewState("sess-1")

	if st.Phase != "plan" {
		t.Errorf("initial phase = %s, want plan", st.Phase)
	}
	if !st.Active {
		t.Error("fresh state should be active")
	}
	if st.SessionID != "sess-1" || st.Mode != "testmode" {
		t.Errorf("binding = (%s, %s)", st.SessionID, st.Mode)
	}
	if st.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %d, want %d", st.SchemaVersion, SchemaVersion)
	}
	if len(st.PhaseHistory) != 1 || st.PhaseHistory[0].Phase != "plan" {
		t.Errorf("history = %+v, want single init entry", st.PhaseHistory)
	}
	if st.Artifacts == nil {
		t.Error("artifacts map should be initialized")
	}
}

func TestResumeTargets(t *testing.T) {
	m := newTestMachine(t)
	targets := m.ResumeTargets()
	if len(targets) != 2 || targets[0] != "plan" || targets[1] != "execution" {
		t.Errorf("ResumeTargets() = %v, want [plan execution]", targets)
	}
}
