// Package tmux provides pane-scraping glue for loop modes. When the host
// supplies no transcript, the ralph loop can scan a tmux pane's scrollback
// for its completion promise instead.
package tmux

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Executor abstracts command execution for testing.
type Executor interface {
	// Run executes a command and returns stdout, stderr, the exit code,
	// and an error. The error is non-nil only when the command failed to
	// start (e.g. binary not found); non-zero exits are reported via the
	// exit code.
	Run(name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// RealExecutor implements Executor using os/exec.
type RealExecutor struct{}

// Run executes the command and returns its output.
func (RealExecutor) Run(name string, args ...string) (string, string, int, error) {
	cmd := exec.Command(name, args...)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	stdout := stdoutBuf.String()
	stderr := stderrBuf.String()

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return stdout, stderr, exitErr.ExitCode(), nil
		}
		return stdout, stderr, -1, runErr
	}
	return stdout, stderr, 0, nil
}

// HasSession reports whether the target's tmux session exists. The target
// may be any tmux target spec, including a pane id.
func HasSession(exec Executor, target string) bool {
	_, _, exitCode, err := exec.Run("tmux", "has-session", "-t", target)
	return err == nil && exitCode == 0
}

// CapturePane captures the full scrollback of a tmux pane. The target uses
// tmux addressing (session:window.pane). Captured text may contain ANSI
// escape sequences; use StripANSI before matching against it.
func CapturePane(exec Executor, target string) (string, error) {
	stdout, stderr, exitCode, err := exec.Run("tmux", "capture-pane", "-p", "-S", "-", "-t", target)
	if err != nil {
		return "", fmt.Errorf("tmux: run capture-pane: %w", err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("tmux: capture-pane failed (exit %d): %s", exitCode, strings.TrimSpace(stderr))
	}
	return stdout, nil
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*(\x07|\x1b\\)`)

// StripANSI removes ANSI escape sequences from captured pane text.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// PaneContains reports whether the pane's scrollback contains the needle,
// case-insensitively, after ANSI stripping. An empty needle never matches.
func PaneContains(exec Executor, target, needle string) (bool, error) {
	if needle == "" {
		return false, nil
	}
	captured, err := CapturePane(exec, target)
	if err != nil {
		return false, err
	}
	clean := strings.ToLower(StripANSI(captured))
	return strings.Contains(clean, strings.ToLower(needle)), nil
}
