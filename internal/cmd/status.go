package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/overdrive-dev/overdrive/internal/modes"
)

var (
	statusLabelStyle  = lipgloss.NewStyle().Bold(true)
	statusActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusDoneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var statusSessionFlag string

var statusCmd = &cobra.Command{
	Use:   "status [mode]",
	Short: "Show session status",
	Long: `With no arguments, list every persisted session. With a mode, show that
session's full detail: phase, history, counters, fix loop, and cancel
state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusSessionFlag, "session", "", "session ID (default: most recent for the mode)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 0 {
		return listSessions(a)
	}
	mode := args[0]
	if err := requirePhaseMode(mode); err != nil {
		return err
	}
	return showSession(a, mode)
}

func listSessions(a *app) error {
	infos := a.store.List()
	if len(infos) == 0 {
		fmt.Println("No sessions.")
		return nil
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Active != infos[j].Active {
			return infos[i].Active
		}
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	for _, info := range infos {
		line := fmt.Sprintf("%-10s %-36s %-14s", info.Mode, info.SessionID, info.Phase)
		if info.Active {
			fmt.Println(statusActiveStyle.Render(line + " active"))
		} else {
			fmt.Println(statusDoneStyle.Render(line))
		}
	}
	return nil
}

func showSession(a *app, mode string) error {
	sessionID, err := a.resolveSession(mode, statusSessionFlag)
	if err != nil {
		return err
	}
	st := a.controller.Get(mode, sessionID)
	if st == nil {
		return fmt.Errorf("no %s session %s", mode, sessionID)
	}

	field := func(label, value string) {
		fmt.Printf("%s %s\n", statusLabelStyle.Render(label+":"), value)
	}
	field("Mode", st.Mode)
	field("Session", st.SessionID)
	field("Phase", string(st.Phase))
	field("Active", fmt.Sprintf("%t", st.Active))
	field("Iteration", fmt.Sprintf("%d/%d", st.Iteration, st.MaxIterations))

	if m, err := modes.MachineFor(mode); err == nil {
		next := m.AllowedNext(st.Phase)
		if st.Cancel.Requested && st.Cancel.PreserveForResume {
			field("Resume targets", phaseList(m.ResumeTargets()))
		} else if len(next) > 0 {
			field("Next phases", phaseList(next))
		}
	}

	if st.Execution.TasksTotal > 0 {
		field("Tasks", fmt.Sprintf("%v/%v complete, %v failed",
			st.Execution.TasksCompleted, st.Execution.TasksTotal, st.Execution.TasksFailed))
	}
	if st.FixLoop.Attempt > 0 {
		field("Fix loop", fmt.Sprintf("attempt %d of %d", st.FixLoop.Attempt, st.FixLoop.MaxAttempts))
	}
	if len(st.Artifacts) > 0 {
		names := make([]string, 0, len(st.Artifacts))
		for name := range st.Artifacts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			field("Artifact "+name, st.Artifacts[name])
		}
	}
	if st.Cancel.Requested {
		field("Cancelled", fmt.Sprintf("preserve_for_resume=%t", st.Cancel.PreserveForResume))
	}

	if len(st.PhaseHistory) > 0 {
		fmt.Println(statusLabelStyle.Render("History:"))
		for _, entry := range st.PhaseHistory {
			line := fmt.Sprintf("  %s  %s", entry.EnteredAt.Format("2006-01-02 15:04:05"), entry.Phase)
			if entry.Reason != "" {
				line += "  (" + entry.Reason + ")"
			}
			fmt.Println(line)
		}
	}
	return nil
}

func phaseList[T ~string](phases []T) string {
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}
