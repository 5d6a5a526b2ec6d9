package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"torrentmeta/internal/title"
)

var parseCmd = &cobra.Command{
	Use:   "parse <name>...",
	Short: "Parse release names without any network lookups",
	Long: `Parse runs only the pattern grammar over each release name and prints
the identity guess: title, media type, year, season and episode. Useful
for checking what a name will resolve as before spending provider calls.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			identities := make([]parsedOutput, len(args))
			for i, name := range args {
				identities[i] = newParsedOutput(name, title.Parse(name))
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(identities)
		}

		for _, name := range args {
			id := title.Parse(name)
			fmt.Fprintln(cmd.OutOrStdout(), formatIdentity(name, id))
		}
		return nil
	},
}

// parsedOutput is the JSON shape for one parsed name.
type parsedOutput struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	MediaType string `json:"media_type"`
	Year      int    `json:"year,omitempty"`
	Season    int    `json:"season,omitempty"`
	Episode   int    `json:"episode,omitempty"`
}

func newParsedOutput(name string, id title.ParsedIdentity) parsedOutput {
	return parsedOutput{
		Name:      name,
		Title:     id.Title,
		MediaType: string(id.MediaType),
		Year:      id.Year,
		Season:    id.Season,
		Episode:   id.Episode,
	}
}

func formatIdentity(name string, id title.ParsedIdentity) string {
	if id.MediaType == title.MediaTypeUnknown {
		return labelStyle.Render(name) + "\n  " + faultStyle.Render("unrecognized")
	}

	header := id.Title
	if id.Year > 0 {
		header = fmt.Sprintf("%s (%d)", id.Title, id.Year)
	}
	out := labelStyle.Render(name) + "\n  " + headerStyle.Render(header)
	out += " " + noteStyle.Render(string(id.MediaType))
	if id.Season > 0 {
		marker := fmt.Sprintf("S%02d", id.Season)
		if id.Episode > 0 {
			marker = fmt.Sprintf("%sE%02d", marker, id.Episode)
		}
		out += " " + noteStyle.Render(marker)
	}
	return out
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
