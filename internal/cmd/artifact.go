package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var artifactSessionFlag string

var artifactCmd = &cobra.Command{
	Use:   "artifact <mode> <name> <path>",
	Short: "Record an artifact path on a session",
	Long: `Store the path of an externally produced artifact (a plan document, a
PRD) on the session. Guards on later phases require these to be set.`,
	Args: cobra.ExactArgs(3),
	RunE: runArtifact,
}

func init() {
	artifactCmd.Flags().StringVar(&artifactSessionFlag, "session", "", "session ID (default: most recent for the mode)")
	rootCmd.AddCommand(artifactCmd)
}

func runArtifact(cmd *cobra.Command, args []string) error {
	mode, name, path := args[0], args[1], args[2]
	if err := requirePhaseMode(mode); err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sessionID, err := a.resolveSession(mode, artifactSessionFlag)
	if err != nil {
		return err
	}
	if _, err := a.controller.SetArtifact(mode, sessionID, name, path); err != nil {
		return err
	}
	fmt.Printf("%s session %s: %s = %s\n", mode, sessionID, name, path)
	return nil
}
