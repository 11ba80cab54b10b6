package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/overdrive-dev/overdrive/internal/phase"
	"github.com/overdrive-dev/overdrive/internal/state"
)

func newWatchStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func writeSession(t *testing.T, store *state.Store, mode, sessionID string, active bool) {
	t.Helper()
	st := &phase.State{
		SchemaVersion: phase.SchemaVersion,
		SessionID:     sessionID,
		Mode:          mode,
		Phase:         "plan",
		Active:        active,
	}
	if err := store.Write(sessionID, st); err != nil {
		t.Fatal(err)
	}
}

func TestViewEmpty(t *testing.T) {
	m := NewModel(newWatchStore(t))
	if view := m.View(); !strings.Contains(view, "no sessions") {
		t.Errorf("view = %q", view)
	}
}

func TestRefreshLoadsSessions(t *testing.T) {
	store := newWatchStore(t)
	writeSession(t, store, "autopilot", "sess-1", true)
	writeSession(t, store, "pipeline", "sess-2", false)

	m := NewModel(store)
	updated, _ := m.Update(refreshMsg{})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "autopilot") || !strings.Contains(view, "pipeline") {
		t.Errorf("view missing sessions:\n%s", view)
	}
	// Active sessions sort before finished ones.
	if strings.Index(view, "autopilot") > strings.Index(view, "pipeline") {
		t.Error("active session should be listed first")
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewModel(newWatchStore(t))
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		_, cmd := m.Update(keyMsg(key))
		if cmd == nil {
			t.Errorf("key %q should quit", key)
		}
	}
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestWatchErrorDegradesGracefully(t *testing.T) {
	m := NewModel(newWatchStore(t))
	updated, _ := m.Update(watchErrMsg{err: errTest})
	m = updated.(Model)
	if !strings.Contains(m.View(), "watch disabled") {
		t.Error("view should surface the watch failure")
	}
}

var errTest = errString("boom")

type errString string

func (e errString) Error() string { return string(e) }
