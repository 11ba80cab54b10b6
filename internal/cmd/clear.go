package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overdrive-dev/overdrive/internal/modes"
	"github.com/overdrive-dev/overdrive/internal/modes/ralph"
	"github.com/overdrive-dev/overdrive/internal/modes/ultrawork"
)

var clearSessionFlag string

var clearCmd = &cobra.Command{
	Use:   "clear <mode>",
	Short: "Delete a session's state",
	Long: `Remove the persisted state for a (mode, session) pair. Clearing a
session that does not exist succeeds. This is the only way to discard a
session that was cancelled without --preserve.`,
	Args: cobra.ExactArgs(1),
	RunE: runClear,
}

func init() {
	clearCmd.Flags().StringVar(&clearSessionFlag, "session", "", "session ID (default: most recent for the mode)")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	mode := args[0]
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sessionID := clearSessionFlag
	if modes.IsPhaseMode(mode) {
		if sessionID, err = a.resolveSession(mode, clearSessionFlag); err != nil {
			return err
		}
		if err := a.controller.Clear(mode, sessionID); err != nil {
			return err
		}
	} else {
		if sessionID == "" {
			return fmt.Errorf("pass --session to clear %s state", mode)
		}
		switch mode {
		case ralph.Mode:
			if err := ralph.NewStore(a.store).Clear(sessionID); err != nil {
				return err
			}
		case ultrawork.Mode:
			if err := ultrawork.NewStore(a.store).Clear(sessionID); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown mode %q (valid: %v)", mode, modes.All())
		}
	}
	fmt.Printf("Cleared %s state\n", mode)
	return nil
}
