// Package modes ties the phase machines, state store, and audit log into
// the surface the orchestrator drives: init, transition, report, cancel,
// resume, clear. All phase-mode state mutations flow through the
// Controller so the history and terminal invariants are preserved; nothing
// else writes state fields directly.
package modes

import (
	"fmt"

	"github.com/overdrive-dev/overdrive/internal/modes/autopilot"
	"github.com/overdrive-dev/overdrive/internal/modes/pipeline"
	"github.com/overdrive-dev/overdrive/internal/modes/ralph"
	"github.com/overdrive-dev/overdrive/internal/modes/ultrawork"
	"github.com/overdrive-dev/overdrive/internal/phase"
)

// PhaseModes lists the modes backed by a phase machine.
func PhaseModes() []string {
	return []string{autopilot.Mode, pipeline.Mode}
}

// LoopModes lists the loop/marker modes.
func LoopModes() []string {
	return []string{ralph.Mode, ultrawork.Mode}
}

// All lists every mode label.
func All() []string {
	return append(PhaseModes(), LoopModes()...)
}

// IsPhaseMode reports whether the mode is backed by a phase machine.
func IsPhaseMode(mode string) bool {
	return mode == autopilot.Mode || mode == pipeline.Mode
}

// MachineFor builds the phase machine for a mode label.
func MachineFor(mode string, opts ...phase.Option) (*phase.Machine, error) {
	switch mode {
	case autopilot.Mode:
		return autopilot.NewMachine(opts...)
	case pipeline.Mode:
		return pipeline.NewMachine(opts...)
	default:
		return nil, fmt.Errorf("modes: %q is not a phase mode", mode)
	}
}
