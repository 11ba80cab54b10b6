package ralph

import (
	"testing"
	"time"

	"github.com/overdrive-dev/overdrive/internal/state"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewLoop(t *testing.T) {
	l := NewLoop("sess-1", "fix the flaky tests", "ALL TESTS PASS", 5, testTime)
	if !l.Active || l.Status != StatusWorking {
		t.Errorf("fresh loop: active=%t status=%s", l.Active, l.Status)
	}
	if l.Iteration != 1 {
		t.Errorf("iteration = %d, want 1", l.Iteration)
	}
	if l.MaxIterations != 5 {
		t.Errorf("max iterations = %d, want 5", l.MaxIterations)
	}
}

func TestNewLoopDefaultCeiling(t *testing.T) {
	l := NewLoop("sess-1", "p", "", 0, testTime)
	if l.MaxIterations != DefaultMaxIterations {
		t.Errorf("max iterations = %d, want %d", l.MaxIterations, DefaultMaxIterations)
	}
}

func TestPromiseSeen(t *testing.T) {
	l := NewLoop("sess-1", "p", "ALL TESTS PASS", 5, testTime)

	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"exact", "ALL TESTS PASS", true},
		{"case insensitive", "all tests pass now", true},
		{"embedded", "done!\nall TESTS pass\n", true},
		{"absent", "still working on it", false},
		{"empty output", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.PromiseSeen(tt.output); got != tt.want {
				t.Errorf("PromiseSeen(%q) = %t, want %t", tt.output, got, tt.want)
			}
		})
	}
}

func TestEmptyPromiseNeverMatches(t *testing.T) {
	l := NewLoop("sess-1", "p", "", 5, testTime)
	if l.PromiseSeen("anything at all") {
		t.Error("empty promise must never match")
	}
}

func TestAdvanceToCeiling(t *testing.T) {
	l := NewLoop("sess-1", "p", "", 3, testTime)

	if !l.Advance(testTime) || l.Iteration != 2 {
		t.Fatalf("first advance: iteration = %d", l.Iteration)
	}
	if !l.Advance(testTime) || l.Iteration != 3 {
		t.Fatalf("second advance: iteration = %d", l.Iteration)
	}

	// At the ceiling the loop ends instead of advancing.
	if l.Advance(testTime) {
		t.Fatal("advance at ceiling should return false")
	}
	if l.Active || l.Status != StatusMaxIterations {
		t.Errorf("ended loop: active=%t status=%s", l.Active, l.Status)
	}
	if l.CompletedAt == nil {
		t.Error("ended loop should carry completed_at")
	}

	// Advancing an ended loop stays false and changes nothing.
	if l.Advance(testTime) {
		t.Error("advance on ended loop should return false")
	}
}

func TestMarkComplete(t *testing.T) {
	l := NewLoop("sess-1", "p", "DONE", 5, testTime)
	l.MarkComplete(testTime)
	if l.Active || l.Status != StatusComplete {
		t.Errorf("active=%t status=%s", l.Active, l.Status)
	}

	// Terminal marks do not overwrite each other.
	l.MarkError("later failure", testTime)
	if l.Status != StatusComplete {
		t.Errorf("status = %s, want complete to stick", l.Status)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	files, err := state.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(files).WithClock(func() time.Time { return testTime })

	if got := s.Load("sess-1"); got != nil {
		t.Fatalf("Load before Save = %+v, want nil", got)
	}

	l := NewLoop("sess-1", "prompt", "DONE", 5, testTime)
	if err := s.Save("sess-1", l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := s.Load("sess-1")
	if got == nil {
		t.Fatal("Load returned nil after Save")
	}
	if got.Prompt != "prompt" || got.CompletionPromise != "DONE" || !got.Active {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	// A document bound to one session is invisible to another.
	if got := s.Load("sess-2"); got != nil {
		t.Errorf("cross-session Load = %+v, want nil", got)
	}

	if err := s.Clear("sess-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := s.Load("sess-1"); got != nil {
		t.Error("loop survived Clear")
	}
	if err := s.Clear("sess-1"); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}
