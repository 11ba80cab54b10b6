// Package audit provides append-only event logging for overdrive sessions.
// Events are stored as JSONL: one JSON object per line, appended to a
// single file under the overdrive base directory. The log is a debugging
// and accountability aid, so writes are best-effort: callers log failures
// and continue with the main operation.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileName is the audit log file name, relative to the base directory.
const FileName = "audit.jsonl"

// SchemaVersion is the event record format version.
const SchemaVersion = "1"

// Event represents a single line in audit.jsonl. This is the public
// contract for the audit file format.
type Event struct {
	SchemaVersion string         `json:"schema_version"`
	Timestamp     string         `json:"timestamp"` // RFC3339
	SessionID     string         `json:"session_id"`
	Mode          string         `json:"mode,omitempty"`
	Event         string         `json:"event"`
	Data          map[string]any `json:"data,omitempty"`
}

// Writer appends events for one overdrive base directory.
type Writer struct {
	path  string
	clock func() time.Time
}

// NewWriter creates a Writer for the audit log under baseDir.
func NewWriter(baseDir string) *Writer {
	return &Writer{
		path:  filepath.Join(baseDir, FileName),
		clock: time.Now,
	}
}

// WithClock injects a deterministic clock for tests.
func (w *Writer) WithClock(clock func() time.Time) *Writer {
	if clock != nil {
		w.clock = clock
	}
	return w
}

// Path returns the audit log path.
func (w *Writer) Path() string {
	return w.path
}

// Append writes a single event line. The file and its parent directory are
// created lazily.
func (w *Writer) Append(sessionID, mode, event string, data map[string]any) (err error) {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	line, err := json.Marshal(Event{
		SchemaVersion: SchemaVersion,
		Timestamp:     w.clock().UTC().Format(time.RFC3339),
		SessionID:     sessionID,
		Mode:          mode,
		Event:         event,
		Data:          data,
	})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}

// TransitionData returns the data map for a phase_transition event.
func TransitionData(from, to string, ok bool, reason string) map[string]any {
	data := map[string]any{
		"from": from,
		"to":   to,
		"ok":   ok,
	}
	if reason != "" {
		data["reason"] = reason
	}
	return data
}

// HookData returns the data map for a hook_event record. toolName is only
// set for tool-use events.
func HookData(eventName, toolName string) map[string]any {
	data := map[string]any{
		"hook_event": eventName,
	}
	if toolName != "" {
		data["tool_name"] = toolName
	}
	return data
}

// CancelData returns the data map for a cancel_requested event.
func CancelData(preserveForResume bool) map[string]any {
	return map[string]any{
		"preserve_for_resume": preserveForResume,
	}
}
