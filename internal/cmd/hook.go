package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/overdrive-dev/overdrive/internal/hooks"
	"github.com/overdrive-dev/overdrive/internal/modes/ralph"
	"github.com/overdrive-dev/overdrive/internal/modes/ultrawork"
	"github.com/overdrive-dev/overdrive/internal/skills"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle a host lifecycle hook",
	Long: `Read one hook payload from stdin, dispatch it, and write the response
to stdout. This is the command the host's hook configuration points at;
it is not meant to be run by hand.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

// runHook always answers the host and always exits zero. A broken payload,
// config, or state file must never make the host's lifecycle hooks fail:
// internal errors are logged and the response degrades to an empty object,
// which the host treats as "proceed".
func runHook(cmd *cobra.Command, args []string) error {
	return hookResponse(os.Stdin).Encode(os.Stdout)
}

func hookResponse(r io.Reader) *hooks.Output {
	in, err := hooks.DecodeInput(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hook: %v\n", err)
		return nil
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hook: %v\n", err)
		return nil
	}
	defer a.close()

	registry, err := skills.LoadRegistry(a.skillDirs()...)
	if err != nil {
		a.logger.Warn("hook: loading skills failed", "error", err)
		return nil
	}

	dispatcher, err := hooks.NewDispatcher(
		a.cfg,
		a.controller,
		ralph.NewStore(a.store),
		ultrawork.NewStore(a.store),
		registry,
		a.audit,
		a.logger,
	)
	if err != nil {
		a.logger.Warn("hook: dispatcher setup failed", "error", err)
		return nil
	}

	out, err := dispatcher.Dispatch(in)
	if err != nil {
		a.logger.WithSession(in.SessionID).Warn("hook: dispatch failed", "event", in.HookEventName, "error", err)
		return nil
	}
	return out
}
