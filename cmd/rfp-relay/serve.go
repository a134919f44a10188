package main

import (
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rfp-relay-go/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the inbox scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logrus.Info("Starting RFP relay service")
		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx, debug)
	},
}
