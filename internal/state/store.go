// Package state persists mode session documents as JSON files under the
// overdrive state directory. Writes are atomic (temp file + rename) so a
// crash mid-write can never leave a half-written document, and reads never
// fail hard: a missing, corrupt, or mismatched file reads as "no session".
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/overdrive-dev/overdrive/internal/phase"
)

// Dir is the directory name for session state files, relative to the
// overdrive base directory.
const Dir = "state"

// ErrNoSessionID is returned by Write when the state document carries no
// session binding.
var ErrNoSessionID = errors.New("state: session ID is required")

// Store reads and writes mode state documents under a base directory
// (conventionally the project-local .overdrive directory).
//
// New writes always target the session-scoped path
// <base>/state/<mode>-<sessionID>.json. Reads fall back to the legacy
// non-session-scoped path <base>/state/<mode>.json kept for compatibility
// with documents written before sessions were scoped.
type Store struct {
	baseDir string
	clock   func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore creates a Store rooted at baseDir, creating the state directory
// if needed.
func NewStore(baseDir string, opts ...Option) (*Store, error) {
	s := &Store{baseDir: baseDir, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(s.stateDir(), 0o755); err != nil {
		return nil, fmt.Errorf("state: create state directory: %w", err)
	}
	return s, nil
}

// Path returns the session-scoped path for a mode's state document.
func (s *Store) Path(mode, sessionID string) string {
	return filepath.Join(s.stateDir(), fmt.Sprintf("%s-%s.json", mode, sessionID))
}

// LegacyPath returns the pre-session-scoping path for a mode's state
// document. Readers fall back to it; writers never target it.
func (s *Store) LegacyPath(mode string) string {
	return filepath.Join(s.stateDir(), mode+".json")
}

// Read loads the state document for a (mode, session) pair. It returns nil
// when no document exists, when the file cannot be parsed, or when the
// document's session binding does not match the requested session. It never
// returns an error to the caller: every failure means "no active session".
func (s *Store) Read(mode, sessionID string) *phase.State {
	if st := s.readFile(s.Path(mode, sessionID), sessionID); st != nil {
		return st
	}
	// Legacy fallback. A legacy document bound to a different session is
	// still rejected: cross-session file reuse would corrupt the run.
	return s.readFile(s.LegacyPath(mode), sessionID)
}

func (s *Store) readFile(path, sessionID string) *phase.State {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var st phase.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil
	}
	if st.SessionID != "" && st.SessionID != sessionID {
		return nil
	}
	return &st
}

// Write persists a state document at the session-scoped path. Every write
// stamps updated_at and re-asserts the session binding and schema version,
// so a caller can neither downgrade the schema nor drop the session ID.
// A non-nil error means the state was not persisted; the caller must not
// proceed as if it was.
func (s *Store) Write(sessionID string, st *phase.State) error {
	if st == nil {
		return errors.New("state: nil state")
	}
	if strings.TrimSpace(sessionID) == "" {
		return ErrNoSessionID
	}
	st.SessionID = sessionID
	st.SchemaVersion = phase.SchemaVersion
	st.UpdatedAt = s.clock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal %s state: %w", st.Mode, err)
	}
	if err := os.MkdirAll(s.stateDir(), 0o755); err != nil {
		return fmt.Errorf("state: create state directory: %w", err)
	}
	return atomicWriteFile(s.Path(st.Mode, sessionID), data, 0o644)
}

// Clear removes the state documents for a (mode, session) pair, including
// any legacy-path document for the mode. Removing files that do not exist
// is success, not an error.
func (s *Store) Clear(mode, sessionID string) error {
	for _, path := range []string{s.Path(mode, sessionID), s.LegacyPath(mode)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("state: remove %s: %w", path, err)
		}
	}
	return nil
}

// Info summarizes one persisted state document for listings.
type Info struct {
	Mode      string
	SessionID string
	Phase     phase.Phase
	Active    bool
	UpdatedAt time.Time
	Path      string
}

// List returns summaries of every parseable state document in the state
// directory, skipping files it cannot read. Results are best-effort and
// intended for status displays, not for mutation decisions.
func (s *Store) List() []Info {
	entries, err := os.ReadDir(s.stateDir())
	if err != nil {
		return nil
	}
	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.stateDir(), entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var st phase.State
		if err := json.Unmarshal(data, &st); err != nil {
			continue
		}
		if st.Mode == "" {
			continue
		}
		infos = append(infos, Info{
			Mode:      st.Mode,
			SessionID: st.SessionID,
			Phase:     st.Phase,
			Active:    st.Active,
			UpdatedAt: st.UpdatedAt,
			Path:      path,
		})
	}
	return infos
}

// BaseDir returns the base directory this store is rooted at.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) stateDir() string {
	return filepath.Join(s.baseDir, Dir)
}

// atomicWriteFile writes data to path by writing a temp file in the same
// directory and renaming it over the destination, so the target is never
// observed in a partially written state.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("state: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("state: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("state: set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("state: rename temp file: %w", err)
	}
	success = true
	return nil
}
