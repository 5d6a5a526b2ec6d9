package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"torrentmeta/internal/config"
	"torrentmeta/internal/listing"
)

var resolveWorkers int

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>...",
	Short: "Resolve release names to enriched metadata",
	Long: `Resolve parses each release name, looks it up against the configured
metadata provider, and prints the enriched record. TV lookups descend
show, season, episode as far as the name specifies and degrade to the
closest level the provider knows about.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger()
		engine, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}

		raws := make([]listing.RawItem, len(args))
		for i, name := range args {
			raws[i] = listing.RawItem{Name: name}
		}

		workers := resolveWorkers
		if workers <= 0 {
			workers = cfg.WorkerCount
		}
		enricher := listing.NewEnricher(engine, workers, logger)
		items := enricher.EnrichAll(cmd.Context(), raws)

		if jsonOutput {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(items)
		}
		for _, item := range items {
			fmt.Fprintln(cmd.OutOrStdout(), formatItem(item))
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().IntVar(&resolveWorkers, "workers", 0, "Concurrent lookups (default from config)")
	rootCmd.AddCommand(resolveCmd)
}
