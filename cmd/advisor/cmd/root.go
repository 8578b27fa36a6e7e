package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/advisor/internal/core/config"
	"github.com/solatis/advisor/internal/core/logging"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "advisor",
	Short:         "Advisor rule evaluation engine",
	Long:          `Advisor evaluates ordered rule sets against contextual facts and reports the advisories they raise.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves configuration for cmd, honoring only flags the user set.
func loadConfig(cmd *cobra.Command) (*config.ServiceConfig, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}
