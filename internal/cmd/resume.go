package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overdrive-dev/overdrive/internal/modes"
	"github.com/overdrive-dev/overdrive/internal/phase"
)

var resumeSessionFlag string

var resumeCmd = &cobra.Command{
	Use:   "resume <mode> <phase>",
	Short: "Resume a cancelled session",
	Long: `Resume a cancelled session into one of its resume phases. The session
must have been cancelled with --preserve, and the target phase's guard
still applies.`,
	Args: cobra.ExactArgs(2),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeSessionFlag, "session", "", "session ID (default: most recent for the mode)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	mode, target := args[0], phase.Phase(args[1])
	if err := requirePhaseMode(mode); err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sessionID, err := a.resolveSession(mode, resumeSessionFlag)
	if err != nil {
		return err
	}

	res, err := a.controller.Resume(mode, sessionID, target)
	if err != nil {
		return err
	}
	if !res.OK {
		m, merr := modes.MachineFor(mode)
		if merr == nil {
			return fmt.Errorf("%s (resume targets: %v)", res.Reason, m.ResumeTargets())
		}
		return fmt.Errorf("%s", res.Reason)
	}
	fmt.Printf("Resumed %s session %s into phase %q\n", mode, sessionID, res.State.Phase)
	return nil
}
