package config

import (
	"fmt"
	"strings"
)

// ValidationErrors aggregates configuration problems into one error.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Validate checks the configuration for values that would misbehave at
// runtime. It returns all problems found, not just the first.
func (c *Config) Validate() []error {
	var errs []error

	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("logging.max_size_mb: must be >= 0, got %d", c.Logging.MaxSizeMB))
	}
	if c.Logging.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("logging.max_backups: must be >= 0, got %d", c.Logging.MaxBackups))
	}

	for name, bounds := range map[string][2]int{
		"autopilot": {c.Autopilot.MaxIterations, c.Autopilot.FixMaxAttempts},
		"pipeline":  {c.Pipeline.MaxIterations, c.Pipeline.FixMaxAttempts},
	} {
		if bounds[0] < 1 {
			errs = append(errs, fmt.Errorf("%s.max_iterations: must be >= 1, got %d", name, bounds[0]))
		}
		if bounds[1] < 1 {
			errs = append(errs, fmt.Errorf("%s.fix_max_attempts: must be >= 1, got %d", name, bounds[1]))
		}
	}

	if c.Ralph.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("ralph.max_iterations: must be >= 1, got %d", c.Ralph.MaxIterations))
	}

	return errs
}
