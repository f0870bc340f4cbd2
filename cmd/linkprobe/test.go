package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"linkprobe/internal/config"
	"linkprobe/internal/db"
	"linkprobe/internal/geoip"
	"linkprobe/internal/logger"
	"linkprobe/internal/model"
	"linkprobe/internal/prober"
	"linkprobe/internal/store"
)

var (
	flagConcurrency int
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Probe every stored config for TCP reachability",
	Long:  `Run a single connectivity probe against every stored config under the configured concurrency cap, and store the results.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}

		if flagConcurrency > 0 {
			cfg.Prober.Concurrency = flagConcurrency
		}

		database, err := db.Connect(cfg.Database.Path)
		if err != nil {
			logger.Log.Fatalf("Error connecting to DB: %v", err)
		}
		defer db.Close(database)
		if err := db.Migrate(database); err != nil {
			logger.Log.Fatalf("Error migrating DB: %v", err)
		}
		st := store.New(database)

		configs, err := st.Configs()
		if err != nil {
			logger.Log.Fatalf("Failed to fetch configs: %v", err)
		}
		if len(configs) == 0 {
			logger.Log.Error("No configs stored. Run 'fetch' first.")
			return
		}

		geoipReady := geoip.Init(cfg.GeoIP.CountryPath) == nil
		if geoipReady {
			defer geoip.Close()
		} else {
			logger.Log.Debug("GeoIP disabled: no usable country database")
		}

		logger.Log.Infof("Probing %d configs (concurrency %d, timeout %s)...",
			len(configs), cfg.Prober.Concurrency, cfg.Prober.Timeout)

		bar := progressbar.NewOptions(len(configs),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(15),
			progressbar.OptionSetDescription("[cyan]Probing...[reset]"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)

		orch := prober.NewOrchestrator(prober.New(cfg.Prober.Timeout), cfg.Prober.Concurrency)
		results := orch.Run(context.Background(), configs, func(_ model.Result) {
			_ = bar.Add(1)
		})

		bar.Finish()
		fmt.Print("\n")

		alive := 0
		for _, res := range results {
			if res.Success && res.Country == "" && geoipReady {
				host := strings.Trim(res.Server, "[]")
				if country, err := geoip.Country(host); err == nil {
					res.Country = country
				}
			}
			if res.Success {
				alive++
			}
			if err := st.UpsertResult(res); err != nil {
				logger.Log.Errorf("Failed to store result for %s: %v", res.ConfigID, err)
			}
		}

		logger.Log.Infof("Probe complete. Alive: %d/%d", alive, len(results))
	},
}

func init() {
	testCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Override probe concurrency cap")
	rootCmd.AddCommand(testCmd)
}
