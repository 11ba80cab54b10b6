package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/overdrive-dev/overdrive/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "overdrive",
	Short: "Phase-driven work modes for agent sessions",
	Long: `Overdrive tracks long-running agent work as explicit phase state machines.
Modes are activated by trigger words in prompts or by the CLI, advance
through guarded phase transitions, and persist their state as JSON so a
session can be inspected, cancelled, and resumed at any point.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/overdrive/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/overdrive")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("OVERDRIVE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., OVERDRIVE_RALPH_MAX_ITERATIONS for ralph.max_iterations
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
