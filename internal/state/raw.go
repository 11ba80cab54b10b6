package state

import (
	"fmt"
	"os"
	"strings"
)

// ReadRaw returns the raw bytes of a mode's state document, falling back to
// the legacy path, or nil if no document exists. Loop modes (ralph,
// ultrawork) persist their own document shapes through this layer.
func (s *Store) ReadRaw(mode, sessionID string) []byte {
	if data, err := os.ReadFile(s.Path(mode, sessionID)); err == nil {
		return data
	}
	if data, err := os.ReadFile(s.LegacyPath(mode)); err == nil {
		return data
	}
	return nil
}

// WriteRaw atomically persists raw document bytes at the session-scoped
// path for a mode.
func (s *Store) WriteRaw(mode, sessionID string, data []byte) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrNoSessionID
	}
	if err := os.MkdirAll(s.stateDir(), 0o755); err != nil {
		return fmt.Errorf("state: create state directory: %w", err)
	}
	return atomicWriteFile(s.Path(mode, sessionID), data, 0o644)
}
