// Package ultrawork implements the ultrawork marker mode. While the marker
// is active, the Stop hook injects a keep-working directive so the agent
// drains its whole task list instead of stopping after the first item.
//
// Ultrawork carries no iteration bound of its own: when a ralph loop is
// active in the same session, ralph's ceiling governs both (the loop
// linkage). Without ralph, the marker persists until the session ends or it
// is cleared.
package ultrawork

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/overdrive-dev/overdrive/internal/phase"
	"github.com/overdrive-dev/overdrive/internal/state"
)

// Mode is the mode label for ultrawork markers.
const Mode = "ultrawork"

// Directive is the text injected while the marker is active.
const Directive = "Ultrawork is active: keep working through every remaining task. " +
	"Do not stop to summarize or ask for confirmation until all tasks are done."

// Marker is the persisted ultrawork state for one session.
type Marker struct {
	SchemaVersion int    `json:"schema_version"`
	SessionID     string `json:"session_id"`
	Mode          string `json:"mode"`

	Active bool `json:"active"`

	// StopReason records why the marker was deactivated.
	StopReason string `json:"stop_reason,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewMarker creates an active marker.
func NewMarker(sessionID string, now time.Time) *Marker {
	return &Marker{
		SchemaVersion: phase.SchemaVersion,
		SessionID:     sessionID,
		Mode:          Mode,
		Active:        true,
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Deactivate ends the marker, recording why.
func (m *Marker) Deactivate(reason string, now time.Time) {
	if !m.Active {
		return
	}
	m.Active = false
	m.StopReason = reason
	completed := now
	m.CompletedAt = &completed
	m.UpdatedAt = now
}

// Store persists ultrawork markers through the shared state layer.
type Store struct {
	files *state.Store
	clock func() time.Time
}

// NewStore wraps the shared file store.
func NewStore(files *state.Store) *Store {
	return &Store{files: files, clock: time.Now}
}

// WithClock injects a deterministic clock for tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Load returns the marker for a session, or nil when none exists.
func (s *Store) Load(sessionID string) *Marker {
	data := s.files.ReadRaw(Mode, sessionID)
	if data == nil {
		return nil
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	if m.SessionID != "" && m.SessionID != sessionID {
		return nil
	}
	return &m
}

// Save persists the marker, re-asserting the session binding.
func (s *Store) Save(sessionID string, m *Marker) error {
	if m == nil {
		return fmt.Errorf("ultrawork: nil marker")
	}
	m.SessionID = sessionID
	m.SchemaVersion = phase.SchemaVersion
	m.Mode = Mode
	m.UpdatedAt = s.clock()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("ultrawork: marshal marker: %w", err)
	}
	return s.files.WriteRaw(Mode, sessionID, data)
}

// Clear removes the marker document. Clearing a missing document is success.
func (s *Store) Clear(sessionID string) error {
	return s.files.Clear(Mode, sessionID)
}
