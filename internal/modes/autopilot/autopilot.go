// Package autopilot defines the autopilot mode: a single-orchestrator run
// that plans, expands the plan into a spec, executes, and verifies with a
// bounded fix cycle. The machine is isomorphic to the team pipeline; only
// the phase labels and artifact names differ.
package autopilot

import (
	"github.com/overdrive-dev/overdrive/internal/phase"
)

// Mode is the mode label for autopilot sessions.
const Mode = "autopilot"

// Phases of an autopilot run, in lifecycle order.
const (
	PhasePlan         phase.Phase = "plan"
	PhaseExpansion    phase.Phase = "expansion"
	PhaseExecution    phase.Phase = "execution"
	PhaseVerification phase.Phase = "verification"
	PhaseFix          phase.Phase = "fix"
	PhaseComplete     phase.Phase = "complete"
	PhaseFailed       phase.Phase = "failed"
	PhaseCancelled    phase.Phase = "cancelled"
)

// Artifact names recorded in state by external planner agents.
const (
	ArtifactPlan      = "plan_path"
	ArtifactExpansion = "expansion_path"
)

// DefaultFixMaxAttempts bounds the verification -> fix -> verification cycle.
const DefaultFixMaxAttempts = 3

// DefaultMaxIterations bounds whole-run restarts.
const DefaultMaxIterations = 10

// NewMachine builds the autopilot state machine.
func NewMachine(opts ...phase.Option) (*phase.Machine, error) {
	return phase.NewMachine(phase.Machine{
		Mode: Mode,
		Phases: []phase.Phase{
			PhasePlan, PhaseExpansion, PhaseExecution, PhaseVerification, PhaseFix,
			PhaseComplete, PhaseFailed, PhaseCancelled,
		},
		Initial: PhasePlan,
		Table: map[phase.Phase][]phase.Phase{
			PhasePlan:         {PhaseExpansion, PhaseFailed},
			PhaseExpansion:    {PhaseExecution, PhaseFailed},
			PhaseExecution:    {PhaseVerification, PhaseFailed},
			PhaseVerification: {PhaseFix, PhaseComplete, PhaseFailed},
			PhaseFix:          {PhaseVerification, PhaseFailed},

			PhaseComplete: {},
			PhaseFailed:   {},

			PhaseCancelled: {PhasePlan, PhaseExecution},
		},
		Guards: map[phase.Phase]phase.Guard{
			PhaseExecution:    phase.RequireArtifact(ArtifactExpansion, ArtifactPlan),
			PhaseVerification: phase.RequireTasksVerifiable(),
		},
		Fix:       PhaseFix,
		Complete:  PhaseComplete,
		Failed:    PhaseFailed,
		Cancelled: PhaseCancelled,
	}, opts...)
}
