package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediavault-app/mediavault/internal/config"
	"github.com/mediavault-app/mediavault/internal/events"
)

var rootCmd = &cobra.Command{
	Use:   "mediavault",
	Short: "Encrypted media vault with capability-gated access",
	Long: `Mediavault stores media encrypted at rest under a passphrase-derived
key and serves it only through short-lived signed capabilities.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize()
	},
}

var (
	configFile string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger *events.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output results as JSON")
}

func initialize() error {
	loader := config.NewLoader(configFile)

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	return nil
}
