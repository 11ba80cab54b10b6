// Package tui renders the live session watch view: a table of every
// persisted mode session that refreshes when the state directory changes
// on disk.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"github.com/overdrive-dev/overdrive/internal/state"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// refreshMsg asks the model to reload session state from disk.
type refreshMsg struct{}

// watchErrMsg carries a watcher failure; the view keeps running on manual
// refresh only.
type watchErrMsg struct{ err error }

// tickMsg drives the relative-time column.
type tickMsg time.Time

// Model is the bubbletea model for the watch view.
type Model struct {
	store    *state.Store
	watcher  *fsnotify.Watcher
	sessions []state.Info
	watchErr error
	width    int
}

// NewModel builds a watch model over the given store. The fsnotify watcher
// is optional: if the state directory cannot be watched the view degrades
// to ticker-driven refresh.
func NewModel(store *state.Store) Model {
	m := Model{store: store}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.watchErr = err
		return m
	}
	if err := watcher.Add(filepath.Join(store.BaseDir(), state.Dir)); err != nil {
		watcher.Close()
		m.watchErr = err
		return m
	}
	m.watcher = watcher
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return refreshMsg{} },
		m.waitForChange(),
		tick(),
	)
}

// waitForChange blocks on the next filesystem event in the state directory.
func (m Model) waitForChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case _, ok := <-m.watcher.Events:
			if !ok {
				return watchErrMsg{err: fmt.Errorf("watcher closed")}
			}
			return refreshMsg{}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return watchErrMsg{err: fmt.Errorf("watcher closed")}
			}
			return watchErrMsg{err: err}
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.watcher != nil {
				m.watcher.Close()
			}
			return m, tea.Quit
		case "r":
			return m, func() tea.Msg { return refreshMsg{} }
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case refreshMsg:
		m.sessions = m.load()
		return m, m.waitForChange()
	case tickMsg:
		return m, tick()
	case watchErrMsg:
		m.watchErr = msg.err
		m.watcher = nil
	}
	return m, nil
}

func (m Model) load() []state.Info {
	infos := m.store.List()
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Active != infos[j].Active {
			return infos[i].Active
		}
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("overdrive sessions"))
	b.WriteString("\n\n")

	if len(m.sessions) == 0 {
		b.WriteString(doneStyle.Render("no sessions"))
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-14s %-14s %-8s %s",
			"MODE", "SESSION", "PHASE", "ACTIVE", "UPDATED")))
		b.WriteString("\n")
		for _, s := range m.sessions {
			row := fmt.Sprintf("%-10s %-14s %-14s %-8t %s",
				s.Mode, shorten(s.SessionID, 12), s.Phase, s.Active, relTime(s.UpdatedAt))
			if s.Active {
				b.WriteString(activeStyle.Render(row))
			} else {
				b.WriteString(doneStyle.Render(row))
			}
			b.WriteString("\n")
		}
	}

	if m.watchErr != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("watch disabled: %v (press r to refresh)", m.watchErr)))
	}
	b.WriteString(helpStyle.Render("\nr refresh · q quit"))
	return b.String()
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func relTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t).Round(time.Second)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

// Run starts the watch view and blocks until the user quits.
func Run(store *state.Store) error {
	p := tea.NewProgram(NewModel(store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
