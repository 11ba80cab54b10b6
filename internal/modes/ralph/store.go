package ralph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/overdrive-dev/overdrive/internal/phase"
	"github.com/overdrive-dev/overdrive/internal/state"
)

// Store persists ralph loop documents through the shared state layer.
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

// Load returns the loop for a session, or nil when no parseable document
// exists or the document is bound to a different session.
func (s *Store) Load(sessionID string) *Loop {
	data := s.files.ReadRaw(Mode, sessionID)
	if data == nil {
		return nil
	}
	var l Loop
	if err := json.Unmarshal(data, &l); err != nil {
		return nil
	}
	if l.SessionID != "" && l.SessionID != sessionID {
		return nil
	}
	return &l
}

// Save persists the loop, re-asserting the session binding and schema
// version and stamping updated_at.
func (s *Store) Save(sessionID string, l *Loop) error {
	if l == nil {
		return fmt.Errorf("ralph: nil loop")
	}
	l.SessionID = sessionID
	l.SchemaVersion = phase.SchemaVersion
	l.Mode = Mode
	l.UpdatedAt = s.clock()
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("ralph: marshal loop: %w", err)
	}
	return s.files.WriteRaw(Mode, sessionID, data)
}

// Clear removes the loop document. Clearing a missing document is success.
func (s *Store) Clear(sessionID string) error {
	return s.files.Clear(Mode, sessionID)
}
