package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rfp-relay-go/internal/app"
	"rfp-relay-go/internal/config"
)

var (
	cfgFile  string
	debug    bool
	jsonLogs bool

	rootCmd = &cobra.Command{
		Use:           "rfp-relay",
		Short:         "rfp-relay turns procurement requests into RFPs, emails vendors and scores their replies",
		SilenceUsage:  true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml in . or ./config)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLogs, "json", "j", true, "json format for logging")

	rootCmd.AddCommand(serveCmd, checkInboxCmd, seedCmd, migrateCmd)
}

// loadConfig reads the configuration and sets up logging. full selects
// whether the whole configuration is validated or only the database section.
func loadConfig(cmd *cobra.Command, full bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("json") {
		cfg.Log.JSON = jsonLogs
	}
	app.SetupLogging(cfg.Log, debug)

	if full {
		err = cfg.Validate()
	} else {
		err = cfg.Database.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
