package main

import (
	"fmt"

	"procurement/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewConnection(cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		return database.Migrate(db)
	},
}
