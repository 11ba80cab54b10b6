package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cancelSessionFlag  string
	cancelPreserveFlag bool
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <mode>",
	Short: "Cancel a phase mode session",
	Long: `Cancel a session from any non-terminal phase. With --preserve the state
is kept resumable; without it the session can only be inspected and
cleared. Cancelling an already finished session changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().StringVar(&cancelSessionFlag, "session", "", "session ID (default: most recent for the mode)")
	cancelCmd.Flags().BoolVar(&cancelPreserveFlag, "preserve", false, "keep the session resumable")
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	mode := args[0]
	if err := requirePhaseMode(mode); err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sessionID, err := a.resolveSession(mode, cancelSessionFlag)
	if err != nil {
		return err
	}
	st, err := a.controller.Cancel(mode, sessionID, cancelPreserveFlag)
	if err != nil {
		return err
	}
	if !st.Cancel.Requested {
		fmt.Printf("%s session %s already finished in phase %q\n", mode, sessionID, st.Phase)
		return nil
	}
	if cancelPreserveFlag {
		fmt.Printf("Cancelled %s session %s (resumable)\n", mode, sessionID)
	} else {
		fmt.Printf("Cancelled %s session %s\n", mode, sessionID)
	}
	return nil
}
