// Package ralph implements the ralph loop mode: the same prompt is replayed
// every time the agent tries to stop, until a completion promise appears in
// the agent's output or an iteration ceiling is reached. The loop itself
// runs in the external host; this package only tracks its state and decides
// whether the next stop should be blocked.
package ralph

import (
	"strings"
	"time"

	"github.com/overdrive-dev/overdrive/internal/phase"
)

// Mode is the mode label for ralph loop sessions.
const Mode = "ralph"

// DefaultMaxIterations is the safety limit when no ceiling is configured.
const DefaultMaxIterations = 50

// Status describes where a ralph loop is in its lifecycle.
type Status string

const (
	// StatusWorking indicates the loop is live: stops are blocked and the
	// prompt is replayed.
	StatusWorking Status = "working"

	// StatusComplete indicates the completion promise was observed.
	StatusComplete Status = "complete"

	// StatusMaxIterations indicates the iteration ceiling was reached.
	StatusMaxIterations Status = "max_iterations"

	// StatusCancelled indicates the loop was stopped from outside,
	// either explicitly or by the session ending.
	StatusCancelled Status = "cancelled"

	// StatusError indicates the loop stopped because of an error.
	StatusError Status = "error"
)

// Loop is the persisted state of one ralph loop session.
type Loop struct {
	SchemaVersion int    `json:"schema_version"`
	SessionID     string `json:"session_id"`
	Mode          string `json:"mode"`

	Active bool   `json:"active"`
	Status Status `json:"status"`

	// Prompt is the task description replayed each iteration.
	Prompt string `json:"prompt"`

	// CompletionPromise is the phrase that ends the loop when it appears
	// in agent output. Matching is case-insensitive.
	CompletionPromise string `json:"completion_promise"`

	Iteration     int `json:"iteration"`
	MaxIterations int `json:"max_iterations"`

	// StopReason records why the loop ended, for the audit trail.
	StopReason string `json:"stop_reason,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewLoop creates a live loop in its first iteration.
func NewLoop(sessionID, prompt, promise string, maxIterations int, now time.Time) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{
		SchemaVersion:     phase.SchemaVersion,
		SessionID:         sessionID,
		Mode:              Mode,
		Active:            true,
		Status:            StatusWorking,
		Prompt:            prompt,
		CompletionPromise: promise,
		Iteration:         1,
		MaxIterations:     maxIterations,
		StartedAt:         now,
		UpdatedAt:         now,
	}
}

// PromiseSeen reports whether the completion promise appears in the given
// output. An empty promise never matches: a loop with no promise runs to
// its iteration ceiling.
func (l *Loop) PromiseSeen(output string) bool {
	if l.CompletionPromise == "" {
		return false
	}
	return strings.Contains(strings.ToLower(output), strings.ToLower(l.CompletionPromise))
}

// Advance moves the loop to its next iteration. It returns false when the
// iteration ceiling has been reached, in which case the loop has been ended
// with StatusMaxIterations and must not continue.
func (l *Loop) Advance(now time.Time) bool {
	if !l.Active {
		return false
	}
	if l.Iteration >= l.MaxIterations {
		l.end(StatusMaxIterations, "iteration ceiling reached", now)
		return false
	}
	l.Iteration++
	l.UpdatedAt = now
	return true
}

// MarkComplete ends the loop after the completion promise was observed.
func (l *Loop) MarkComplete(now time.Time) {
	l.end(StatusComplete, "completion promise observed", now)
}

// MarkCancelled ends the loop from outside the loop itself.
func (l *Loop) MarkCancelled(reason string, now time.Time) {
	l.end(StatusCancelled, reason, now)
}

// MarkError ends the loop because of an error.
func (l *Loop) MarkError(reason string, now time.Time) {
	l.end(StatusError, reason, now)
}

func (l *Loop) end(status Status, reason string, now time.Time) {
	if !l.Active {
		return
	}
	l.Active = false
	l.Status = status
	l.StopReason = reason
	completed := now
	l.CompletedAt = &completed
	l.UpdatedAt = now
}
