package phase

import (
	"fmt"
	"math"
	"strings"
)

// RequireArtifact returns a guard that passes when at least one of the
// named artifact paths is a non-empty string. Artifact paths are produced
// by external agents; the guard checks presence only, never file contents.
func RequireArtifact(names ...string) Guard {
	return func(st *State) error {
		for _, name := range names {
			if strings.TrimSpace(st.Artifact(name)) != "" {
				return nil
			}
		}
		return fmt.Errorf("missing required artifact: one of %s must be set", strings.Join(names, ", "))
	}
}

// RequireTasksVerifiable returns the verification-entry guard: the
// agent-reported task counters must be trustworthy and must show all work
// finished before a run can enter its verify phase.
//
// tasks_total and tasks_completed are validated independently as
// non-negative finite integers. The explicit NaN/Inf rejection matters:
// NaN compares false against everything, so a naive `completed < total`
// check would vacuously pass and a poisoned counter would slip through.
func RequireTasksVerifiable() Guard {
	return func(st *State) error {
		total := st.Execution.TasksTotal
		completed := st.Execution.TasksCompleted
		if err := ValidateCount("tasks_total", total); err != nil {
			return err
		}
		if err := ValidateCount("tasks_completed", completed); err != nil {
			return err
		}
		if total == 0 {
			return fmt.Errorf("tasks_total must be greater than zero to verify completion")
		}
		if completed < total {
			return fmt.Errorf("tasks_completed (%d) < tasks_total (%d): execution has not finished", int64(completed), int64(total))
		}
		return nil
	}
}

// ValidateCount checks that an agent-reported counter is a non-negative
// finite integer. The field name is included in the error so the
// orchestrator can surface which counter was rejected.
func ValidateCount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) {
		return fmt.Errorf("%s must be a non-negative finite integer, got %v", field, v)
	}
	return nil
}
