package main

import (
	"github.com/spf13/cobra"

	"linkprobe/internal/config"
	"linkprobe/internal/db"
	"linkprobe/internal/logger"
	"linkprobe/internal/store"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored configs and results",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}

		database, err := db.Connect(cfg.Database.Path)
		if err != nil {
			logger.Log.Fatalf("Error connecting to DB: %v", err)
		}
		defer db.Close(database)
		if err := db.Migrate(database); err != nil {
			logger.Log.Fatalf("Error migrating DB: %v", err)
		}

		if err := store.New(database).Clear(); err != nil {
			logger.Log.Fatalf("Failed to clear: %v", err)
		}
		logger.Log.Info("Cleared all configs and results.")
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
