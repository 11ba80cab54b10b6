package modes

import (
	"errors"
	"fmt"

	"github.com/overdrive-dev/overdrive/internal/audit"
	"github.com/overdrive-dev/overdrive/internal/config"
	"github.com/overdrive-dev/overdrive/internal/logging"
	"github.com/overdrive-dev/overdrive/internal/modes/autopilot"
	"github.com/overdrive-dev/overdrive/internal/modes/pipeline"
	"github.com/overdrive-dev/overdrive/internal/phase"
	"github.com/overdrive-dev/overdrive/internal/state"
)

var (
	// ErrNoSession indicates no state document exists for the
	// (mode, session) pair.
	ErrNoSession = errors.New("modes: no active session")

	// ErrAlreadyActive indicates an init was attempted while a live
	// session document exists for the mode.
	ErrAlreadyActive = errors.New("modes: session already active")
)

// Controller is the orchestrator-facing surface for phase modes. It
// serializes every mutation as read -> mutate -> write and records an
// audit event per mutation. Failures to persist are returned to the
// caller, which must not proceed as if the state was saved.
type Controller struct {
	cfg         *config.Config
	store       *state.Store
	audit       *audit.Writer
	logger      *logging.Logger
	machineOpts []phase.Option
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithMachineOptions forwards options (e.g. a test clock) to every machine
// the controller builds.
func WithMachineOptions(opts ...phase.Option) ControllerOption {
	return func(c *Controller) {
		c.machineOpts = opts
	}
}

// NewController wires the controller. A nil logger is replaced with a nop
// logger; a nil audit writer disables audit records.
func NewController(cfg *config.Config, store *state.Store, auditW *audit.Writer, logger *logging.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Controller{
		cfg:    cfg,
		store:  store,
		audit:  auditW,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) machine(mode string) (*phase.Machine, error) {
	return MachineFor(mode, c.machineOpts...)
}

// Init creates and persists a fresh session state for a phase mode,
// seeding the retry bounds from configuration. Initializing over a live
// session is rejected; a finished session's document is replaced.
func (c *Controller) Init(mode, sessionID string) (*phase.State, error) {
	m, err := c.machine(mode)
	if err != nil {
		return nil, err
	}
	if existing := c.store.Read(mode, sessionID); existing != nil && existing.Active {
		return nil, fmt.Errorf("%w: %s session %s is in phase %s", ErrAlreadyActive, mode, sessionID, existing.Phase)
	}

	st := m.NewState(sessionID)
	switch mode {
	case autopilot.Mode:
		st.MaxIterations = c.cfg.Autopilot.MaxIterations
		st.FixLoop.MaxAttempts = c.cfg.Autopilot.FixMaxAttempts
	case pipeline.Mode:
		st.MaxIterations = c.cfg.Pipeline.MaxIterations
		st.FixLoop.MaxAttempts = c.cfg.Pipeline.FixMaxAttempts
	}

	if err := c.store.Write(sessionID, st); err != nil {
		return nil, err
	}
	c.logger.WithSession(sessionID).WithMode(mode).Info("session initialized", "phase", st.Phase)
	c.appendAudit(sessionID, mode, "mode_init", map[string]any{"phase": string(st.Phase)})
	return st, nil
}

// Get returns the current state for a phase mode session, or nil.
func (c *Controller) Get(mode, sessionID string) *phase.State {
	return c.store.Read(mode, sessionID)
}

// Transition runs one guarded phase transition and persists the outcome.
// Results that left the state untouched (illegal transition, guard
// failure) are not rewritten. The returned error is non-nil only for
// missing sessions or persistence failures; transition failures are in the
// Result.
func (c *Controller) Transition(mode, sessionID string, target phase.Phase, reason string) (phase.Result, error) {
	m, err := c.machine(mode)
	if err != nil {
		return phase.Result{}, err
	}
	st := c.store.Read(mode, sessionID)
	if st == nil {
		return phase.Result{}, fmt.Errorf("%w: %s session %s", ErrNoSession, mode, sessionID)
	}
	from := st.Phase

	res := m.Transition(st, target, reason)
	if res.OK || res.Fatal {
		if err := c.store.Write(sessionID, res.State); err != nil {
			return res, fmt.Errorf("transition applied but not persisted: %w", err)
		}
	}

	log := c.logger.WithSession(sessionID).WithMode(mode)
	if res.OK {
		log.Info("phase transition", "from", from, "to", target)
	} else {
		log.Warn("phase transition rejected", "from", from, "to", target, "reason", res.Reason, "fatal", res.Fatal)
	}
	c.appendAudit(sessionID, mode, "phase_transition", audit.TransitionData(string(from), string(target), res.OK, res.Reason))
	return res, nil
}

// Cancel force-cancels a phase mode session, recording whether it may be
// resumed later.
func (c *Controller) Cancel(mode, sessionID string, preserveForResume bool) (*phase.State, error) {
	m, err := c.machine(mode)
	if err != nil {
		return nil, err
	}
	st := c.store.Read(mode, sessionID)
	if st == nil {
		return nil, fmt.Errorf("%w: %s session %s", ErrNoSession, mode, sessionID)
	}
	st = m.RequestCancel(st, preserveForResume)
	if err := c.store.Write(sessionID, st); err != nil {
		return nil, err
	}
	c.logger.WithSession(sessionID).WithMode(mode).Info("cancel requested", "preserve_for_resume", preserveForResume)
	c.appendAudit(sessionID, mode, "cancel_requested", audit.CancelData(preserveForResume))
	return st, nil
}

// Resume transitions a cancelled session back into the forward graph. It
// is a normal guarded transition: the resume set and the target phase's
// guard both still apply.
func (c *Controller) Resume(mode, sessionID string, target phase.Phase) (phase.Result, error) {
	return c.Transition(mode, sessionID, target, "resume")
}

// Report replaces the session's execution counters. Counters come from
// agent-reported values, so each one is validated as a non-negative finite
// integer before it is persisted; the verification guard re-checks them at
// transition time regardless.
func (c *Controller) Report(mode, sessionID string, stats phase.ExecutionStats) (*phase.State, error) {
	for _, counter := range []struct {
		field string
		value float64
	}{
		{"tasks_total", stats.TasksTotal},
		{"tasks_completed", stats.TasksCompleted},
		{"tasks_failed", stats.TasksFailed},
		{"workers_active", stats.WorkersActive},
		{"workers_total", stats.WorkersTotal},
	} {
		if err := phase.ValidateCount(counter.field, counter.value); err != nil {
			return nil, err
		}
	}

	st := c.store.Read(mode, sessionID)
	if st == nil {
		return nil, fmt.Errorf("%w: %s session %s", ErrNoSession, mode, sessionID)
	}
	st.Execution = stats
	if err := c.store.Write(sessionID, st); err != nil {
		return nil, err
	}
	c.appendAudit(sessionID, mode, "execution_report", map[string]any{
		"tasks_total":     stats.TasksTotal,
		"tasks_completed": stats.TasksCompleted,
		"tasks_failed":    stats.TasksFailed,
	})
	return st, nil
}

// SetArtifact records an externally produced artifact path in the session
// state. The path is stored verbatim; the file is never opened.
func (c *Controller) SetArtifact(mode, sessionID, name, path string) (*phase.State, error) {
	st := c.store.Read(mode, sessionID)
	if st == nil {
		return nil, fmt.Errorf("%w: %s session %s", ErrNoSession, mode, sessionID)
	}
	st.SetArtifact(name, path)
	if err := c.store.Write(sessionID, st); err != nil {
		return nil, err
	}
	c.appendAudit(sessionID, mode, "artifact_set", map[string]any{"name": name, "path": path})
	return st, nil
}

// Clear deletes the backing state document for a session. Clearing a
// missing session is success.
func (c *Controller) Clear(mode, sessionID string) error {
	if err := c.store.Clear(mode, sessionID); err != nil {
		return err
	}
	c.appendAudit(sessionID, mode, "state_cleared", nil)
	return nil
}

func (c *Controller) appendAudit(sessionID, mode, event string, data map[string]any) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Append(sessionID, mode, event, data); err != nil {
		c.logger.Warn("audit append failed", "event", event, "error", err)
	}
}
