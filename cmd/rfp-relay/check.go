package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rfp-relay-go/internal/app"
)

var checkInboxCmd = &cobra.Command{
	Use:   "check-inbox",
	Short: "Check the inbox once for vendor proposals and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Pipeline.Run(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}
