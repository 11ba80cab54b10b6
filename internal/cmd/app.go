package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/overdrive-dev/overdrive/internal/audit"
	"github.com/overdrive-dev/overdrive/internal/config"
	"github.com/overdrive-dev/overdrive/internal/logging"
	"github.com/overdrive-dev/overdrive/internal/modes"
	"github.com/overdrive-dev/overdrive/internal/state"
)

// app bundles the wired subsystems every command needs: config, the state
// store rooted at the project's overdrive directory, the mode controller,
// audit trail, and logger.
type app struct {
	cfg        *config.Config
	baseDir    string
	store      *state.Store
	controller *modes.Controller
	audit      *audit.Writer
	logger     *logging.Logger
}

func newApp() (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg := config.Get()
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs[0])
	}
	baseDir := cfg.Paths.ResolveBaseDir(cwd)

	store, err := state.NewStore(baseDir)
	if err != nil {
		return nil, err
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(baseDir, cfg.Logging.Level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, err
		}
	}

	auditW := audit.NewWriter(baseDir)
	controller := modes.NewController(cfg, store, auditW, logger)

	return &app{
		cfg:        cfg,
		baseDir:    baseDir,
		store:      store,
		controller: controller,
		audit:      auditW,
		logger:     logger,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

// skillDirs returns the overlay directories searched for project skills:
// the project-local skills directory first, then any configured extras.
func (a *app) skillDirs() []string {
	dirs := []string{filepath.Join(a.baseDir, "skills")}
	return append(dirs, a.cfg.Skills.Dirs...)
}

// resolveSession picks the session a command operates on. An explicit
// --session value wins; otherwise the most recently updated document for
// the mode is used, preferring active sessions.
func (a *app) resolveSession(mode, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	var best *state.Info
	for _, info := range a.store.List() {
		if info.Mode != mode {
			continue
		}
		info := info
		if best == nil {
			best = &info
			continue
		}
		if info.Active != best.Active {
			if info.Active {
				best = &info
			}
			continue
		}
		if info.UpdatedAt.After(best.UpdatedAt) {
			best = &info
		}
	}
	if best == nil {
		return "", fmt.Errorf("no %s session found; pass --session", mode)
	}
	return best.SessionID, nil
}

// requirePhaseMode validates a mode argument for phase-machine commands.
func requirePhaseMode(mode string) error {
	if modes.IsPhaseMode(mode) {
		return nil
	}
	return fmt.Errorf("unknown phase mode %q (valid: %v)", mode, modes.PhaseModes())
}
