package main

import (
	"log"
	"os"

	"procurement/internal/config"

	"github.com/spf13/cobra"
)

// @title           Procurement API
// @version         1.0
// @description     Vendors, catalog, RFx, reverse auctions, purchase orders, approvals and GST tax master.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "procurement",
	Short: "Procurement management backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		return err
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
