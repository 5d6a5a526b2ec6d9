// Package omdb adapts the Open Movie Database to the provider capability
// surface. OMDb answers a single best match per title query and addresses
// shows by IMDb id, which becomes the opaque show id for this provider.
package omdb

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/omdb"

	"torrentmeta/internal/provider"
)

// Provider implements provider.MetadataProvider against OMDb.
type Provider struct {
	client *omdb.Client
}

// New creates an OMDb-backed provider. The API key is required.
func New(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, provider.ErrInvalidAPIKey
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}
	return &Provider{client: omdb.NewClient(apiKey, httpClient)}, nil
}

// SearchMovie looks up a movie by title. OMDb applies the year filter
// server-side and returns at most one match.
func (p *Provider) SearchMovie(ctx context.Context, name string, year int) (*provider.EnrichedMetadata, error) {
	if name == "" {
		return nil, provider.ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := omdb.QueryData{
		Title:      name,
		SearchType: "movie",
		Plot:       "full",
	}
	if year > 0 {
		query.Year = strconv.Itoa(year)
	}

	result, err := p.client.SearchByTitle(query)
	if err != nil {
		return nil, p.mapError(err)
	}

	switch movie := result.(type) {
	case omdb.MovieResult:
		return p.movieToMetadata(movie), nil
	case *omdb.MovieResult:
		return p.movieToMetadata(*movie), nil
	default:
		return nil, provider.ErrNoResults
	}
}

// SearchTVShow looks up a series by title.
func (p *Provider) SearchTVShow(ctx context.Context, name string) (*provider.EnrichedMetadata, error) {
	if name == "" {
		return nil, provider.ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := omdb.QueryData{
		Title:      name,
		SearchType: "series",
		Plot:       "full",
	}

	result, err := p.client.SearchByTitle(query)
	if err != nil {
		return nil, p.mapError(err)
	}

	switch series := result.(type) {
	case omdb.SeriesResult:
		return p.seriesToMetadata(series), nil
	case *omdb.SeriesResult:
		return p.seriesToMetadata(*series), nil
	default:
		return nil, provider.ErrNoResults
	}
}

// GetSeasonInfo fetches season detail by series IMDb id.
func (p *Provider) GetSeasonInfo(ctx context.Context, showID string, season int) (*provider.EnrichedMetadata, error) {
	showID = strings.TrimSpace(showID)
	if showID == "" || season < 0 {
		return nil, provider.ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := omdb.QueryData{
		ImdbID: showID,
		Season: strconv.Itoa(season),
	}

	result, err := p.client.SearchByImdbID(query)
	if err != nil {
		return nil, p.mapError(err)
	}

	switch detail := result.(type) {
	case omdb.SeasonResult:
		return p.seasonToMetadata(&detail, showID, season), nil
	case *omdb.SeasonResult:
		return p.seasonToMetadata(detail, showID, season), nil
	default:
		return nil, provider.ErrNoResults
	}
}

// GetEpisodeInfo fetches episode detail by series IMDb id.
func (p *Provider) GetEpisodeInfo(ctx context.Context, showID string, season, episode int) (*provider.EnrichedMetadata, error) {
	showID = strings.TrimSpace(showID)
	if showID == "" || season < 0 || episode < 1 {
		return nil, provider.ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := omdb.QueryData{
		ImdbID:  showID,
		Season:  strconv.Itoa(season),
		Episode: strconv.Itoa(episode),
		Plot:    "full",
	}

	result, err := p.client.SearchByImdbID(query)
	if err != nil {
		return nil, p.mapError(err)
	}

	switch detail := result.(type) {
	case omdb.EpisodeResult:
		return p.episodeToMetadata(&detail, showID, season, episode), nil
	case *omdb.EpisodeResult:
		return p.episodeToMetadata(detail, showID, season, episode), nil
	default:
		return nil, provider.ErrNoResults
	}
}

func (p *Provider) movieToMetadata(result omdb.MovieResult) *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:       result.ImdbID,
		Title:    result.Title,
		Overview: result.Plot,
		Rating:   omdb.ParseRating(result.ImdbRating),
		Genres:   omdb.SplitAndTrim(result.Genre),
		Year:     yearValue(omdb.FirstYear(result.Year)),
	}
}

func (p *Provider) seriesToMetadata(result omdb.SeriesResult) *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:       result.ImdbID,
		Title:    result.Title,
		Overview: result.Plot,
		Rating:   omdb.ParseRating(result.ImdbRating),
		Genres:   omdb.SplitAndTrim(result.Genre),
		Year:     yearValue(omdb.FirstYear(result.Year)),
	}
}

func (p *Provider) seasonToMetadata(result *omdb.SeasonResult, showID string, season int) *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:         showID,
		SeasonName: result.Title,
		SeasonNum:  season,
		Year:       yearValue(omdb.FirstYearFromEpisodes(result.Episodes)),
	}
}

func (p *Provider) episodeToMetadata(result *omdb.EpisodeResult, showID string, season, episode int) *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:          showID,
		EpisodeName: result.Title,
		SeasonNum:   season,
		EpisodeNum:  episode,
		Overview:    result.Plot,
		Rating:      omdb.ParseRating(result.ImdbRating),
		Genres:      omdb.SplitAndTrim(result.Genre),
		AirDate:     result.Released,
	}
}

func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "invalid api key"):
		return provider.ErrInvalidAPIKey
	case strings.Contains(lower, "not found"):
		return provider.ErrNoResults
	case strings.Contains(lower, "limit reached"), strings.Contains(lower, "too many requests"):
		return provider.ErrRateLimited
	default:
		return provider.ErrAPIUnavailable
	}
}

// yearValue converts OMDb's string year ("2008", or "" when unknown) to the
// numeric form the rest of the engine uses.
func yearValue(s string) int {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return year
}
