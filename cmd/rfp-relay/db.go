package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rfp-relay-go/internal/app"
	"rfp-relay-go/internal/repository"
	"rfp-relay-go/internal/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		conn, err := app.OpenDatabase(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := conn.DB(); err == nil {
			defer sqlDB.Close()
		}
		logrus.Info("Database schema is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo vendors, skipping existing emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		conn, err := app.OpenDatabase(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := conn.DB(); err == nil {
			defer sqlDB.Close()
		}

		svc := service.New(repository.New(conn), nil, nil, nil)
		inserted, err := svc.Seed(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d vendors (%d demo vendors total)\n", inserted, len(service.DemoVendors()))
		return nil
	},
}
