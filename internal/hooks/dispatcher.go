package hooks

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/overdrive-dev/overdrive/internal/audit"
	"github.com/overdrive-dev/overdrive/internal/config"
	"github.com/overdrive-dev/overdrive/internal/keyword"
	"github.com/overdrive-dev/overdrive/internal/logging"
	"github.com/overdrive-dev/overdrive/internal/modes"
	"github.com/overdrive-dev/overdrive/internal/modes/ralph"
	"github.com/overdrive-dev/overdrive/internal/modes/ultrawork"
	"github.com/overdrive-dev/overdrive/internal/skills"
	"github.com/overdrive-dev/overdrive/internal/tmux"
)

// transcriptTailTurns is how many trailing assistant turns are scanned for
// a ralph completion promise.
const transcriptTailTurns = 5

// Dispatcher routes hook events to mode logic. One Dispatcher handles one
// hook invocation; construction wires every mode store against the same
// base directory.
type Dispatcher struct {
	cfg        *config.Config
	controller *modes.Controller
	ralph      *ralph.Store
	ultrawork  *ultrawork.Store
	detector   *keyword.Detector
	registry   *skills.Registry
	audit      *audit.Writer
	logger     *logging.Logger
	tmux       tmux.Executor
	clock      func() time.Time
}

// NewDispatcher builds a dispatcher. Keyword detection is disabled when the
// config turns it off or a trigger pattern fails to compile; the rest of the
// hook surface still works.
func NewDispatcher(cfg *config.Config, controller *modes.Controller, ralphStore *ralph.Store, ultraStore *ultrawork.Store, registry *skills.Registry, auditW *audit.Writer, logger *logging.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	d := &Dispatcher{
		cfg:        cfg,
		controller: controller,
		ralph:      ralphStore,
		ultrawork:  ultraStore,
		registry:   registry,
		audit:      auditW,
		logger:     logger,
		tmux:       tmux.RealExecutor{},
		clock:      time.Now,
	}
	if cfg.Keywords.Enabled {
		var rules []keyword.Rule
		for mode, patterns := range cfg.Keywords.Triggers {
			rules = append(rules, keyword.Rule{Mode: mode, Patterns: patterns})
		}
		det, err := keyword.NewDetector(rules)
		if err != nil {
			return nil, fmt.Errorf("compiling keyword triggers: %w", err)
		}
		d.detector = det
	}
	return d, nil
}

// WithClock overrides the dispatcher clock for tests.
func (d *Dispatcher) WithClock(clock func() time.Time) *Dispatcher {
	d.clock = clock
	return d
}

// WithTmux swaps the tmux executor, primarily for tests.
func (d *Dispatcher) WithTmux(exec tmux.Executor) *Dispatcher {
	d.tmux = exec
	return d
}

// Dispatch handles one hook event. The returned output may be nil, meaning
// the event proceeds untouched. Errors here are host-visible hook failures
// and are reserved for broken input; mode-level problems degrade to
// pass-through.
func (d *Dispatcher) Dispatch(in *Input) (*Output, error) {
	if in.SessionID == "" {
		return nil, fmt.Errorf("hook input missing session_id")
	}
	log := d.logger.WithSession(in.SessionID)
	log.Debug("hook event", "event", in.HookEventName)

	switch in.HookEventName {
	case EventUserPromptSubmit:
		return d.onPrompt(in), nil
	case EventStop:
		return d.onStop(in), nil
	case EventSessionStart:
		return d.onSessionStart(in), nil
	case EventSessionEnd:
		d.onSessionEnd(in)
		return nil, nil
	case EventPreToolUse, EventPostToolUse:
		d.appendAudit(in.SessionID, "", "hook_event", audit.HookData(in.HookEventName, in.ToolName))
		return nil, nil
	default:
		return nil, nil
	}
}

// onPrompt scans the prompt for mode triggers, activates each matched mode,
// and injects the matching skill briefings as context.
func (d *Dispatcher) onPrompt(in *Input) *Output {
	if d.detector == nil {
		return nil
	}
	matches := d.detector.Detect(in.Prompt)
	if len(matches) == 0 {
		return nil
	}

	var briefings []string
	for _, m := range matches {
		if err := d.activate(m.Mode, in); err != nil {
			d.logger.WithSession(in.SessionID).WithMode(m.Mode).Warn("mode activation failed", "error", err)
			continue
		}
		d.appendAudit(in.SessionID, m.Mode, "mode_triggered", map[string]any{"trigger": m.Trigger})
		if sk := d.registry.Get(m.Mode); sk != nil {
			briefings = append(briefings, sk.Inject())
		}
	}
	if len(briefings) == 0 {
		return nil
	}
	return InjectContext(EventUserPromptSubmit, strings.Join(briefings, "\n\n---\n\n"))
}

func (d *Dispatcher) activate(mode string, in *Input) error {
	now := d.clock()
	switch {
	case modes.IsPhaseMode(mode):
		_, err := d.controller.Init(mode, in.SessionID)
		if err == nil {
			return nil
		}
		// A live session means the mode is already running; re-injecting
		// its briefing is still useful.
		if st := d.controller.Get(mode, in.SessionID); st != nil && st.Active {
			return nil
		}
		return err
	case mode == ralph.Mode:
		if l := d.ralph.Load(in.SessionID); l != nil && l.Active {
			return nil
		}
		loop := ralph.NewLoop(in.SessionID, in.Prompt, d.cfg.Ralph.CompletionPromise, d.cfg.Ralph.MaxIterations, now)
		return d.ralph.Save(in.SessionID, loop)
	case mode == ultrawork.Mode:
		if m := d.ultrawork.Load(in.SessionID); m != nil && m.Active {
			return nil
		}
		return d.ultrawork.Save(in.SessionID, ultrawork.NewMarker(in.SessionID, now))
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// onStop decides whether the agent may stop. Ralph is checked first: a live
// loop replays its prompt until the completion promise shows up in the
// transcript or the iteration ceiling is hit. Then ultrawork: a live marker
// blocks the first stop with its directive and steps aside on the next one.
func (d *Dispatcher) onStop(in *Input) *Output {
	now := d.clock()

	if loop := d.ralph.Load(in.SessionID); loop != nil && loop.Active {
		tail := AssistantTail(in.TranscriptPath, transcriptTailTurns)
		promised := loop.PromiseSeen(tail)
		if !promised && tail == "" {
			// No transcript; fall back to scanning the current tmux pane,
			// which holds the agent's recent output when running inside one.
			if pane := os.Getenv("TMUX_PANE"); pane != "" && tmux.HasSession(d.tmux, pane) {
				if seen, err := tmux.PaneContains(d.tmux, pane, loop.CompletionPromise); err == nil {
					promised = seen
				}
			}
		}
		if promised {
			loop.MarkComplete(now)
			d.saveRalph(in.SessionID, loop)
			d.appendAudit(in.SessionID, ralph.Mode, "loop_complete", map[string]any{"iteration": loop.Iteration})
			return &Output{SystemMessage: fmt.Sprintf("ralph: completion promise observed after %d iteration(s)", loop.Iteration)}
		}
		if loop.Advance(now) {
			d.saveRalph(in.SessionID, loop)
			d.appendAudit(in.SessionID, ralph.Mode, "loop_continue", map[string]any{"iteration": loop.Iteration})
			return Block(fmt.Sprintf(
				"Ralph loop iteration %d/%d. The task is not confirmed done. Continue working on the original request:\n\n%s\n\nWhen it is genuinely complete, state %q.",
				loop.Iteration, loop.MaxIterations, loop.Prompt, loop.CompletionPromise))
		}
		// Advance ended the loop at its ceiling.
		d.saveRalph(in.SessionID, loop)
		d.appendAudit(in.SessionID, ralph.Mode, "loop_max_iterations", map[string]any{"iteration": loop.Iteration})
		return &Output{SystemMessage: fmt.Sprintf("ralph: iteration ceiling (%d) reached, stopping", loop.MaxIterations)}
	}

	if marker := d.ultrawork.Load(in.SessionID); marker != nil && marker.Active {
		if !in.StopHookActive {
			d.appendAudit(in.SessionID, ultrawork.Mode, "stop_blocked", nil)
			return Block(ultrawork.Directive)
		}
		marker.Deactivate("agent stopped after continuation", now)
		if err := d.ultrawork.Save(in.SessionID, marker); err != nil {
			d.logger.WithSession(in.SessionID).Warn("ultrawork save failed", "error", err)
		}
		d.appendAudit(in.SessionID, ultrawork.Mode, "marker_deactivated", nil)
	}
	return nil
}

// onSessionStart re-injects context for any mode state that survived from a
// previous session with the same ID, so a resumed conversation knows where
// it left off.
func (d *Dispatcher) onSessionStart(in *Input) *Output {
	d.appendAudit(in.SessionID, "", "session_start", nil)

	var lines []string
	for _, mode := range modes.PhaseModes() {
		st := d.controller.Get(mode, in.SessionID)
		if st == nil || !st.Active {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s session is active in phase %q (iteration %d/%d).", mode, st.Phase, st.Iteration, st.MaxIterations))
		if sk := d.registry.Get(mode); sk != nil {
			lines = append(lines, sk.Inject())
		}
	}
	if loop := d.ralph.Load(in.SessionID); loop != nil && loop.Active {
		lines = append(lines, fmt.Sprintf("ralph loop is active at iteration %d/%d for: %s", loop.Iteration, loop.MaxIterations, loop.Prompt))
	}
	if marker := d.ultrawork.Load(in.SessionID); marker != nil && marker.Active {
		lines = append(lines, ultrawork.Directive)
	}
	if len(lines) == 0 {
		return nil
	}
	return InjectContext(EventSessionStart, strings.Join(lines, "\n\n"))
}

// onSessionEnd winds down loop modes. Phase mode state is left on disk so a
// cancelled or in-flight session can be inspected and resumed.
func (d *Dispatcher) onSessionEnd(in *Input) {
	now := d.clock()
	if loop := d.ralph.Load(in.SessionID); loop != nil && loop.Active {
		loop.MarkCancelled("session ended", now)
		d.saveRalph(in.SessionID, loop)
	}
	if marker := d.ultrawork.Load(in.SessionID); marker != nil && marker.Active {
		marker.Deactivate("session ended", now)
		if err := d.ultrawork.Save(in.SessionID, marker); err != nil {
			d.logger.WithSession(in.SessionID).Warn("ultrawork save failed", "error", err)
		}
	}
	d.appendAudit(in.SessionID, "", "session_end", map[string]any{"reason": in.Reason})
}

func (d *Dispatcher) saveRalph(sessionID string, l *ralph.Loop) {
	if err := d.ralph.Save(sessionID, l); err != nil {
		d.logger.WithSession(sessionID).WithMode(ralph.Mode).Warn("loop save failed", "error", err)
	}
}

func (d *Dispatcher) appendAudit(sessionID, mode, event string, data map[string]any) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Append(sessionID, mode, event, data); err != nil {
		d.logger.Warn("audit append failed", "event", event, "error", err)
	}
}
