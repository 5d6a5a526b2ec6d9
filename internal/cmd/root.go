package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "torrentmeta",
	Short: "Identify and enrich torrent release names",
	Long: `torrentmeta identifies the movie or TV show behind a messy torrent
release name and enriches it with metadata from TMDB or OMDb.

Names that defeat pattern matching can be escalated to an AI extractor
when a Gemini API key is configured. Results are cached for the lifetime
of the process, including negative results, so repeated lookups never
trigger a second round of external calls.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	jsonOutput bool
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON instead of styled output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log provider and AI activity to stderr")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
