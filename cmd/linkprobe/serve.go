package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linkprobe/internal/api"
	"linkprobe/internal/config"
	"linkprobe/internal/db"
	"linkprobe/internal/logger"
	"linkprobe/internal/prober"
	"linkprobe/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API server",
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

		orch := prober.NewOrchestrator(prober.New(cfg.Prober.Timeout), cfg.Prober.Concurrency)
		server := api.NewServer(store.New(database), orch, cfg.API)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				logger.Log.Fatalf("Server error: %v", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				logger.Log.Errorf("Shutdown error: %v", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
