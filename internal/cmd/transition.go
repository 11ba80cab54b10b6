package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overdrive-dev/overdrive/internal/phase"
)

var (
	transitionSessionFlag string
	transitionReasonFlag  string
)

var transitionCmd = &cobra.Command{
	Use:   "transition <mode> <phase>",
	Short: "Advance a session to another phase",
	Long: `Run one guarded phase transition. The target must be reachable from the
current phase and its guard must pass; otherwise the state is left
untouched and the rejection reason is printed.`,
	Args: cobra.ExactArgs(2),
	RunE: runTransition,
}

func init() {
	transitionCmd.Flags().StringVar(&transitionSessionFlag, "session", "", "session ID (default: most recent for the mode)")
	transitionCmd.Flags().StringVar(&transitionReasonFlag, "reason", "", "reason recorded in phase history")
	rootCmd.AddCommand(transitionCmd)
}

func runTransition(cmd *cobra.Command, args []string) error {
	mode, target := args[0], phase.Phase(args[1])
	if err := requirePhaseMode(mode); err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sessionID, err := a.resolveSession(mode, transitionSessionFlag)
	if err != nil {
		return err
	}

	res, err := a.controller.Transition(mode, sessionID, target, transitionReasonFlag)
	if err != nil {
		return err
	}
	if !res.OK {
		if res.Fatal {
			return fmt.Errorf("%s (session forced to %q)", res.Reason, res.State.Phase)
		}
		return fmt.Errorf("%s", res.Reason)
	}
	fmt.Printf("%s session %s -> %q\n", mode, sessionID, res.State.Phase)
	return nil
}
