package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"linkprobe/internal/config"
	"linkprobe/internal/db"
	"linkprobe/internal/logger"
	"linkprobe/internal/model"
	"linkprobe/internal/parser"
	"linkprobe/internal/sources"
	"linkprobe/internal/store"
)

var fetchParams map[string]string
var fetchURL string

var fetchCmd = &cobra.Command{
	Use:   "fetch [source_names...]",
	Short: "Run sources to fetch and decode subscription links",
	Long:  `Run all sources defined in config, or specify specific ones by name. Use --url for a one-off subscription URL, or --param to override source parameters.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}

		if fetchURL != "" {
			cfg.Sources = []config.SourceConfig{{
				Name:   "cli",
				Type:   "http",
				Params: map[string]interface{}{"url": fetchURL},
			}}
		} else if len(args) > 0 {
			cfg.FilterSources(args)
		}

		if len(cfg.Sources) == 0 {
			logger.Log.Warn("No sources matched the provided names.")
			return
		}

		for i := range cfg.Sources {
			if cfg.Sources[i].Params == nil {
				cfg.Sources[i].Params = make(map[string]interface{})
			}
			for k, v := range fetchParams {
				if intVal, err := strconv.Atoi(v); err == nil {
					cfg.Sources[i].Params[k] = intVal
				} else {
					cfg.Sources[i].Params[k] = v
				}
			}
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

		var batch []model.Config
		seen := make(map[string]bool)

		for _, sCfg := range cfg.Sources {
			logger.Log.Infof("Running source: %s (%s)...", sCfg.Name, sCfg.Type)

			source, err := sources.Get(sCfg.Type)
			if err != nil {
				logger.Log.Warnf("Skipping: %v", err)
				continue
			}

			rawLinks, err := source.Fetch(sCfg.Params)
			if err != nil {
				logger.Log.Errorf("Error running source: %v", err)
				continue
			}

			decoded := 0
			for _, raw := range rawLinks {
				if seen[raw] {
					continue
				}
				seen[raw] = true

				rec, err := parser.Decode(raw)
				if err != nil {
					logger.Log.Debugf("Dropped link: %v", err)
					continue
				}
				batch = append(batch, *rec)
				decoded++
			}

			logger.Log.Infof("Source %s finished. Decoded %d/%d links.", sCfg.Name, decoded, len(rawLinks))
		}

		if len(batch) == 0 {
			logger.Log.Warn("No configs decoded; keeping existing set.")
			return
		}
		if err := st.ReplaceConfigs(batch); err != nil {
			logger.Log.Fatalf("Failed to store configs: %v", err)
		}
		logger.Log.Infof("Stored %d configs.", len(batch))
	},
}

func init() {
	fetchCmd.Flags().StringToStringVarP(&fetchParams, "param", "p", nil, "Override source params")
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "Fetch a single subscription URL instead of configured sources")
	rootCmd.AddCommand(fetchCmd)
}
