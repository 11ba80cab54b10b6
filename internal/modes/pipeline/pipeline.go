// Package pipeline defines the team-pipeline mode: a multi-agent delivery
// pipeline that moves a session through planning, PRD expansion, execution,
// and a bounded verify/fix cycle.
package pipeline

import (
	"github.com/overdrive-dev/overdrive/internal/phase"
)

// Mode is the mode label for team-pipeline sessions.
const Mode = "pipeline"

// Phases of the team pipeline, in lifecycle order.
const (
	PhasePlan      phase.Phase = "team-plan"
	PhasePRD       phase.Phase = "team-prd"
	PhaseExec      phase.Phase = "team-exec"
	PhaseVerify    phase.Phase = "team-verify"
	PhaseFix       phase.Phase = "team-fix"
	PhaseComplete  phase.Phase = "complete"
	PhaseFailed    phase.Phase = "failed"
	PhaseCancelled phase.Phase = "cancelled"
)

// Artifact names recorded in state by external planner agents.
const (
	ArtifactPlan = "plan_path"
	ArtifactPRD  = "prd_path"
)

// DefaultFixMaxAttempts bounds the verify -> fix -> verify cycle.
const DefaultFixMaxAttempts = 3

// NewMachine builds the team-pipeline state machine.
func NewMachine(opts ...phase.Option) (*phase.Machine, error) {
	return phase.NewMachine(phase.Machine{
		Mode: Mode,
		Phases: []phase.Phase{
			PhasePlan, PhasePRD, PhaseExec, PhaseVerify, PhaseFix,
			PhaseComplete, PhaseFailed, PhaseCancelled,
		},
		Initial: PhasePlan,
		Table: map[phase.Phase][]phase.Phase{
			PhasePlan:   {PhasePRD, PhaseFailed},
			PhasePRD:    {PhaseExec, PhaseFailed},
			PhaseExec:   {PhaseVerify, PhaseFailed},
			PhaseVerify: {PhaseFix, PhaseComplete, PhaseFailed},
			PhaseFix:    {PhaseVerify, PhaseFailed},

			// Terminal phases have no outgoing edges.
			PhaseComplete: {},
			PhaseFailed:   {},

			// Cancelled maps to the resume set: the phases a preserved
			// cancellation can be resumed into.
			PhaseCancelled: {PhasePlan, PhaseExec},
		},
		Guards: map[phase.Phase]phase.Guard{
			// Execution needs a planning artifact to hand to workers.
			PhaseExec: phase.RequireArtifact(ArtifactPRD, ArtifactPlan),
			// Verification needs trustworthy, finished task counters.
			PhaseVerify: phase.RequireTasksVerifiable(),
		},
		Fix:       PhaseFix,
		Complete:  PhaseComplete,
		Failed:    PhaseFailed,
		Cancelled: PhaseCancelled,
	}, opts...)
}
