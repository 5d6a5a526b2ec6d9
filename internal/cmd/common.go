package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"torrentmeta/internal/ai"
	"torrentmeta/internal/config"
	"torrentmeta/internal/listing"
	"torrentmeta/internal/provider"
	"torrentmeta/internal/provider/omdb"
	"torrentmeta/internal/provider/tmdb"
	"torrentmeta/internal/resolver"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	faultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// buildEngine wires a resolution engine from the loaded configuration.
// TMDB wins when both provider keys are set; with neither the engine runs
// hard-disabled and every lookup reports unresolved.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*resolver.Engine, error) {
	var p provider.MetadataProvider
	switch {
	case cfg.TMDBAPIKey != "":
		tp, err := tmdb.New(cfg.TMDBAPIKey, cfg.Language)
		if err != nil {
			return nil, fmt.Errorf("tmdb provider: %w", err)
		}
		p = tp
	case cfg.OMDBAPIKey != "":
		op, err := omdb.New(cfg.OMDBAPIKey)
		if err != nil {
			return nil, fmt.Errorf("omdb provider: %w", err)
		}
		p = op
	default:
		logger.Warn("no provider credentials configured, lookups will report unresolved")
	}
	return resolver.New(p, ai.NewExtractor(cfg.GeminiAPIKey, logger), logger), nil
}

// formatItem renders one enriched listing item for terminal output.
func formatItem(item listing.Item) string {
	var b strings.Builder

	b.WriteString(labelStyle.Render(item.Name))
	b.WriteByte('\n')
	if !item.Resolved {
		b.WriteString(faultStyle.Render("  unresolved"))
		b.WriteByte('\n')
		return b.String()
	}

	header := item.Title
	if item.Year > 0 {
		header = fmt.Sprintf("%s (%d)", item.Title, item.Year)
	}
	b.WriteString("  " + headerStyle.Render(header))
	if item.MediaType == "tv" && item.Season > 0 {
		marker := fmt.Sprintf("S%02d", item.Season)
		if item.Episode > 0 {
			marker = fmt.Sprintf("%sE%02d", marker, item.Episode)
		}
		b.WriteString(" " + noteStyle.Render(marker))
	}
	b.WriteByte('\n')

	if item.Rating > 0 {
		fmt.Fprintf(&b, "  %s %.1f\n", labelStyle.Render("rating"), item.Rating)
	}
	if len(item.Genres) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("genres"), strings.Join(item.Genres, ", "))
	}
	if item.Description != "" {
		fmt.Fprintf(&b, "  %s\n", item.Description)
	}
	if item.PosterURL != "" {
		fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("poster"), item.PosterURL)
	}
	return b.String()
}
