package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"linkprobe/internal/config"
	"linkprobe/internal/db"
	"linkprobe/internal/logger"
	"linkprobe/internal/store"
)

var flagLimit int

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show successful probe results sorted by latency",
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

		st := store.New(database)
		results, err := st.ResultsByLatency(flagLimit)
		if err != nil {
			logger.Log.Fatalf("Failed to fetch results: %v", err)
		}

		if len(results) == 0 {
			fmt.Println("No successful results. Run 'test' first.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LATENCY\tPROTOCOL\tSERVER\tPORT\tNAME\tCOUNTRY\tTESTED")
		for _, r := range results {
			fmt.Fprintf(w, "%.1fms\t%s\t%s\t%d\t%s\t%s\t%s\n",
				r.LatencyMs, r.Protocol, r.Server, r.Port,
				truncate(r.Name, 40), r.Country,
				r.TestedAt.Local().Format("2006-01-02 15:04:05"))
		}
		w.Flush()
		fmt.Printf("\nTotal: %d\n", len(results))
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	resultsCmd.Flags().IntVar(&flagLimit, "limit", 1000, "Maximum results to show")
	rootCmd.AddCommand(resultsCmd)
}
