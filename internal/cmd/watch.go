package cmd

import (
	"github.com/spf13/cobra"

	"github.com/overdrive-dev/overdrive/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch sessions live",
	Long: `Open a terminal view of every persisted session that refreshes as state
files change on disk.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	return tui.Run(a.store)
}
