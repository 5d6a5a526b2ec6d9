package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"torrentmeta/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Config prints the effective configuration: file values merged with
environment overrides. API keys are masked unless --json is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if jsonOutput {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(cfg)
		}

		path, err := config.Path()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("config file"), path)
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("tmdb api key"), maskKey(cfg.TMDBAPIKey))
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("omdb api key"), maskKey(cfg.OMDBAPIKey))
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("gemini api key"), maskKey(cfg.GeminiAPIKey))
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("language"), cfg.Language)
		fmt.Fprintf(out, "%s %d\n", labelStyle.Render("workers"), cfg.WorkerCount)
		if !cfg.HasProvider() {
			fmt.Fprintln(out, faultStyle.Render("no provider credentials: lookups will report unresolved"))
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s", path)
		}
		if err := config.Default().Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func maskKey(key string) string {
	if key == "" {
		return faultStyle.Render("unset")
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
