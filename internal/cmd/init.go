package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var initSessionFlag string

var initCmd = &cobra.Command{
	Use:   "init <mode>",
	Short: "Start a new phase mode session",
	Long: `Create and persist a fresh session for a phase mode (autopilot or
pipeline). A session ID is generated unless --session is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initSessionFlag, "session", "", "session ID to bind (generated if empty)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	mode := args[0]
	if err := requirePhaseMode(mode); err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sessionID := initSessionFlag
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	st, err := a.controller.Init(mode, sessionID)
	if err != nil {
		return err
	}
	fmt.Printf("Initialized %s session %s in phase %q\n", mode, sessionID, st.Phase)
	fmt.Printf("State: %s\n", a.store.Path(mode, sessionID))
	return nil
}
