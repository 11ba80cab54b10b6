package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readLogLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		lines = append(lines, entry)
	}
	return lines
}

func TestLoggerWritesJSON(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	l.Info("session initialized", "phase", "plan")
	l.Debug("should be filtered at info level")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLogLines(t, filepath.Join(dir, "logs", FileName))
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1", len(lines))
	}
	if lines[0]["msg"] != "session initialized" || lines[0]["phase"] != "plan" {
		t.Errorf("entry = %v", lines[0])
	}
	if lines[0]["level"] != "INFO" {
		t.Errorf("level = %v", lines[0]["level"])
	}
}

func TestPersistentAttrs(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, LevelDebug, DefaultRotationConfig())
	if err != nil {
		t.Fatal(err)
	}

	child := l.WithSession("sess-1").WithMode("autopilot").WithPhase("execution")
	child.Info("working")
	// The parent is unaffected by child attributes.
	l.Info("plain")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	lines := readLogLines(t, filepath.Join(dir, "logs", FileName))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	withAttrs := lines[0]
	if withAttrs["session_id"] != "sess-1" || withAttrs["mode"] != "autopilot" || withAttrs["phase"] != "execution" {
		t.Errorf("child entry missing attrs: %v", withAttrs)
	}
	if _, present := lines[1]["session_id"]; present {
		t.Errorf("parent entry leaked child attrs: %v", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, "debug", DefaultRotationConfig())
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("visible at debug")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	lines := readLogLines(t, filepath.Join(dir, "logs", FileName))
	if len(lines) != 1 {
		t.Errorf("lowercase level string not honored: %d lines", len(lines))
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info("discarded")
	l.WithSession("s").Error("also discarded")
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer rw.Close()

	chunk := make([]byte, 600*1024)
	for i := range chunk {
		chunk[i] = 'x'
	}
	// First write fits; second would exceed 1MB and triggers rotation.
	for i := 0; i < 2; i++ {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected backup file after rotation: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len(chunk)) {
		t.Errorf("live file size = %d, want %d", info.Size(), len(chunk))
	}
}

func TestRotationKeepsMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer rw.Close()

	chunk := make([]byte, 700*1024)
	for i := 0; i < 5; i++ {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Error("backup .1 missing")
	}
	if _, err := os.Stat(path + ".2"); err != nil {
		t.Error("backup .2 missing")
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backup .3 should have been dropped")
	}
}
