package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete overdrive configuration.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Autopilot AutopilotConfig `mapstructure:"autopilot"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Ralph     RalphConfig     `mapstructure:"ralph"`
	Keywords  KeywordsConfig  `mapstructure:"keywords"`
	Skills    SkillsConfig    `mapstructure:"skills"`
}

// PathsConfig controls where overdrive stores state, logs, and the audit log.
type PathsConfig struct {
	// BaseDir is the overdrive data directory. If empty it defaults to
	// ".overdrive" relative to the working directory. Supports ~ for
	// home directory expansion.
	BaseDir string `mapstructure:"base_dir"`
}

// LoggingConfig controls debug logging behavior.
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true).
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// MaxSizeMB is the log file size limit before rotation.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `mapstructure:"max_backups"`
}

// AutopilotConfig controls autopilot mode bounds.
type AutopilotConfig struct {
	// MaxIterations bounds whole-run restarts.
	MaxIterations int `mapstructure:"max_iterations"`
	// FixMaxAttempts bounds the verification/fix cycle.
	FixMaxAttempts int `mapstructure:"fix_max_attempts"`
}

// PipelineConfig controls team-pipeline mode bounds.
type PipelineConfig struct {
	MaxIterations  int `mapstructure:"max_iterations"`
	FixMaxAttempts int `mapstructure:"fix_max_attempts"`
}

// RalphConfig controls ralph loop defaults.
type RalphConfig struct {
	// MaxIterations is the loop safety ceiling.
	MaxIterations int `mapstructure:"max_iterations"`
	// CompletionPromise is the default phrase that ends a loop. Empty
	// means loops run to the iteration ceiling unless one is given at
	// activation time.
	CompletionPromise string `mapstructure:"completion_promise"`
}

// KeywordsConfig controls prompt keyword detection.
type KeywordsConfig struct {
	// Enabled controls whether the UserPromptSubmit hook scans prompts.
	Enabled bool `mapstructure:"enabled"`
	// Triggers maps mode names to glob trigger patterns. Patterns
	// containing whitespace match the whole prompt; others match
	// individual words.
	Triggers map[string][]string `mapstructure:"triggers"`
}

// SkillsConfig controls skill document discovery.
type SkillsConfig struct {
	// Dirs are extra skill directories searched after the project-local
	// <base>/skills directory. Later directories override earlier ones
	// by skill name.
	Dirs []string `mapstructure:"dirs"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			BaseDir: "", // Empty means use .overdrive in the working directory
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Autopilot: AutopilotConfig{
			MaxIterations:  10,
			FixMaxAttempts: 3,
		},
		Pipeline: PipelineConfig{
			MaxIterations:  10,
			FixMaxAttempts: 3,
		},
		Ralph: RalphConfig{
			MaxIterations:     50,
			CompletionPromise: "",
		},
		Keywords: KeywordsConfig{
			Enabled: true,
			Triggers: map[string][]string{
				"autopilot": {"autopilot"},
				"pipeline":  {"team-pipeline", "teampipeline"},
				"ralph":     {"ralph"},
				"ultrawork": {"ultrawork", "ulw"},
			},
		},
		Skills: SkillsConfig{
			Dirs: []string{},
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("paths.base_dir", defaults.Paths.BaseDir)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	viper.SetDefault("autopilot.max_iterations", defaults.Autopilot.MaxIterations)
	viper.SetDefault("autopilot.fix_max_attempts", defaults.Autopilot.FixMaxAttempts)

	viper.SetDefault("pipeline.max_iterations", defaults.Pipeline.MaxIterations)
	viper.SetDefault("pipeline.fix_max_attempts", defaults.Pipeline.FixMaxAttempts)

	viper.SetDefault("ralph.max_iterations", defaults.Ralph.MaxIterations)
	viper.SetDefault("ralph.completion_promise", defaults.Ralph.CompletionPromise)

	viper.SetDefault("keywords.enabled", defaults.Keywords.Enabled)
	viper.SetDefault("keywords.triggers", defaults.Keywords.Triggers)

	viper.SetDefault("skills.dirs", defaults.Skills.Dirs)
}

// Load reads the configuration from viper into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ResolveBaseDir returns the resolved overdrive data directory. Relative
// paths resolve against workDir; ~ expands to the home directory.
func (p *PathsConfig) ResolveBaseDir(workDir string) string {
	if p.BaseDir == "" {
		return filepath.Join(workDir, ".overdrive")
	}
	path := p.BaseDir
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	return path
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "overdrive")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".overdrive"
	}
	return filepath.Join(home, ".config", "overdrive")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
