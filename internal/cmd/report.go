package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overdrive-dev/overdrive/internal/phase"
)

var (
	reportSessionFlag    string
	reportTasksTotal     float64
	reportTasksCompleted float64
	reportTasksFailed    float64
	reportWorkersActive  float64
	reportWorkersTotal   float64
)

var reportCmd = &cobra.Command{
	Use:   "report <mode>",
	Short: "Record execution progress counters",
	Long: `Replace a session's execution counters. Counters must be non-negative
whole numbers; the verification guard checks them again before the
session can leave the execution phase.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportSessionFlag, "session", "", "session ID (default: most recent for the mode)")
	reportCmd.Flags().Float64Var(&reportTasksTotal, "tasks-total", 0, "total planned tasks")
	reportCmd.Flags().Float64Var(&reportTasksCompleted, "tasks-completed", 0, "tasks finished")
	reportCmd.Flags().Float64Var(&reportTasksFailed, "tasks-failed", 0, "tasks failed")
	reportCmd.Flags().Float64Var(&reportWorkersActive, "workers-active", 0, "workers currently running")
	reportCmd.Flags().Float64Var(&reportWorkersTotal, "workers-total", 0, "workers started overall")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	mode := args[0]
	if err := requirePhaseMode(mode); err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sessionID, err := a.resolveSession(mode, reportSessionFlag)
	if err != nil {
		return err
	}

	st, err := a.controller.Report(mode, sessionID, phase.ExecutionStats{
		TasksTotal:     reportTasksTotal,
		TasksCompleted: reportTasksCompleted,
		TasksFailed:    reportTasksFailed,
		WorkersActive:  reportWorkersActive,
		WorkersTotal:   reportWorkersTotal,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s session %s: %v/%v tasks complete, %v failed\n",
		mode, sessionID, st.Execution.TasksCompleted, st.Execution.TasksTotal, st.Execution.TasksFailed)
	return nil
}
