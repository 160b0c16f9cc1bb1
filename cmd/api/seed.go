package main

import (
	"fmt"

	"procurement/internal/database"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the buyer_admin account and reference tax rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewConnection(cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		return database.Seed(cmd.Context(), db, database.SeedOptions{
			AdminUsername: cfg.Seed.AdminUsername,
			AdminEmail:    cfg.Seed.AdminEmail,
			AdminPassword: cfg.Seed.AdminPassword,
		})
	},
}
