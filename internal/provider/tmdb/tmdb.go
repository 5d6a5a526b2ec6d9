// Package tmdb adapts The Movie Database API to the provider capability
// surface. All TMDB payload shapes are decoded into provider.EnrichedMetadata
// here; nothing TMDB-specific leaks past this package.
package tmdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	tmdb "github.com/ryanbradynd05/go-tmdb"

	"torrentmeta/internal/provider"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// Client is the subset of *tmdb.TMDb the adapter uses, extracted for testing.
type Client interface {
	SearchMovie(name string, options map[string]string) (*tmdb.MovieSearchResults, error)
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	GetMovieInfo(id int, options map[string]string) (*tmdb.Movie, error)
	GetTvInfo(id int, options map[string]string) (*tmdb.TV, error)
	GetTvSeasonInfo(showID, seasonNum int, options map[string]string) (*tmdb.TvSeason, error)
	GetTvEpisodeInfo(showID, seasonNum, episodeNum int, options map[string]string) (*tmdb.TvEpisode, error)
}

// tvSearchResult mirrors the inline struct go-tmdb uses for TV search hits
// so the fields are addressable by name.
type tvSearchResult struct {
	BackdropPath  string `json:"backdrop_path"`
	ID            int
	OriginalName  string   `json:"original_name"`
	FirstAirDate  string   `json:"first_air_date"`
	OriginCountry []string `json:"origin_country"`
	PosterPath    string   `json:"poster_path"`
	Popularity    float32
	Name          string
	VoteAverage   float32 `json:"vote_average"`
	VoteCount     uint32  `json:"vote_count"`
}

// Provider implements provider.MetadataProvider against TMDB.
type Provider struct {
	client   Client
	cache    *cache.Cache
	limiter  *rateLimiter
	language string
}

// New creates a TMDB-backed provider. The API key is required; language
// defaults to en-US.
func New(apiKey, language string) (*Provider, error) {
	if apiKey == "" {
		return nil, provider.ErrInvalidAPIKey
	}
	if language == "" {
		language = "en-US"
	}

	client := tmdb.Init(tmdb.Config{APIKey: apiKey})

	return &Provider{
		client:   client,
		cache:    cache.New(time.Hour, 10*time.Minute),
		limiter:  newRateLimiter(38, 10*time.Second),
		language: language,
	}, nil
}

// SetClient swaps the underlying API client (tests).
func (p *Provider) SetClient(client Client) { p.client = client }

// SearchMovie searches for a movie, preferring an exact release-year match
// when a year is supplied and falling back to TMDB's first (most relevant)
// result otherwise.
func (p *Provider) SearchMovie(ctx context.Context, name string, year int) (*provider.EnrichedMetadata, error) {
	if name == "" {
		return nil, provider.ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("movie:%s:%d:%s", name, year, p.language)
	if meta, ok := p.cached(cacheKey); ok {
		return meta, nil
	}

	options := map[string]string{"language": p.language}
	if year > 0 {
		options["year"] = strconv.Itoa(year)
	}

	p.limiter.wait()
	results, err := p.client.SearchMovie(name, options)
	if err != nil {
		return nil, p.mapError(err)
	}
	if results == nil || len(results.Results) == 0 {
		return nil, provider.ErrNoResults
	}

	chosen := results.Results[0]
	if year > 0 {
		for _, r := range results.Results {
			if releaseYear(r.ReleaseDate) == year {
				chosen = r
				break
			}
		}
	}

	// Search summaries carry genre ids but no names, and can miss the
	// poster path; the details call fills both in.
	meta := p.movieShortToMetadata(&chosen)
	p.limiter.wait()
	if full, err := p.client.GetMovieInfo(chosen.ID, options); err == nil && full != nil {
		meta = p.movieToMetadata(full)
	}

	p.cache.Set(cacheKey, meta, cache.DefaultExpiration)
	return meta, nil
}

// SearchTVShow searches for a TV show and returns the first result enriched
// with full show details.
func (p *Provider) SearchTVShow(ctx context.Context, name string) (*provider.EnrichedMetadata, error) {
	if name == "" {
		return nil, provider.ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("tvshow:%s:%s", name, p.language)
	if meta, ok := p.cached(cacheKey); ok {
		return meta, nil
	}

	options := map[string]string{"language": p.language}

	p.limiter.wait()
	results, err := p.client.SearchTv(name, options)
	if err != nil {
		return nil, p.mapError(err)
	}
	if results == nil || len(results.Results) == 0 {
		return nil, provider.ErrNoResults
	}

	show := (*tvSearchResult)(&results.Results[0])

	meta := p.tvShortToMetadata(show)
	p.limiter.wait()
	if full, err := p.client.GetTvInfo(show.ID, options); err == nil && full != nil {
		meta = p.tvToMetadata(full)
	}

	p.cache.Set(cacheKey, meta, cache.DefaultExpiration)
	return meta, nil
}

// GetSeasonInfo fetches season-level detail for a previously resolved show.
func (p *Provider) GetSeasonInfo(ctx context.Context, showID string, season int) (*provider.EnrichedMetadata, error) {
	id, err := parseShowID(showID)
	if err != nil {
		return nil, err
	}
	if season < 0 {
		return nil, provider.ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("season:%d:%d:%s", id, season, p.language)
	if meta, ok := p.cached(cacheKey); ok {
		return meta, nil
	}

	options := map[string]string{"language": p.language}

	p.limiter.wait()
	detail, err := p.client.GetTvSeasonInfo(id, season, options)
	if err != nil {
		return nil, p.mapError(err)
	}
	if detail == nil {
		return nil, provider.ErrNoResults
	}

	meta := p.seasonToMetadata(detail, showID)
	p.cache.Set(cacheKey, meta, cache.DefaultExpiration)
	return meta, nil
}

// GetEpisodeInfo fetches episode-level detail for a previously resolved show.
func (p *Provider) GetEpisodeInfo(ctx context.Context, showID string, season, episode int) (*provider.EnrichedMetadata, error) {
	id, err := parseShowID(showID)
	if err != nil {
		return nil, err
	}
	if season < 0 || episode < 1 {
		return nil, provider.ErrNoResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("episode:%d:%d:%d:%s", id, season, episode, p.language)
	if meta, ok := p.cached(cacheKey); ok {
		return meta, nil
	}

	options := map[string]string{"language": p.language}

	p.limiter.wait()
	detail, err := p.client.GetTvEpisodeInfo(id, season, episode, options)
	if err != nil {
		return nil, p.mapError(err)
	}
	if detail == nil {
		return nil, provider.ErrNoResults
	}

	meta := p.episodeToMetadata(detail, showID)
	p.cache.Set(cacheKey, meta, cache.DefaultExpiration)
	return meta, nil
}

func (p *Provider) cached(key string) (*provider.EnrichedMetadata, bool) {
	if v, found := p.cache.Get(key); found {
		if meta, ok := v.(*provider.EnrichedMetadata); ok {
			return meta, true
		}
	}
	return nil, false
}

// Decoders: TMDB payload shapes -> EnrichedMetadata

func (p *Provider) movieShortToMetadata(movie *tmdb.MovieShort) *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:        strconv.Itoa(movie.ID),
		Title:     movie.Title,
		Overview:  movie.Overview,
		PosterURL: posterURL(movie.PosterPath),
		Rating:    movie.VoteAverage,
		Year:      releaseYear(movie.ReleaseDate),
	}
}

func (p *Provider) movieToMetadata(movie *tmdb.Movie) *provider.EnrichedMetadata {
	genres := make([]string, 0, len(movie.Genres))
	for _, g := range movie.Genres {
		genres = append(genres, g.Name)
	}

	return &provider.EnrichedMetadata{
		ID:        strconv.Itoa(movie.ID),
		Title:     movie.Title,
		Overview:  movie.Overview,
		PosterURL: posterURL(movie.PosterPath),
		Rating:    movie.VoteAverage,
		Genres:    genres,
		Year:      releaseYear(movie.ReleaseDate),
	}
}

func (p *Provider) tvShortToMetadata(show *tvSearchResult) *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:        strconv.Itoa(show.ID),
		Title:     show.Name,
		PosterURL: posterURL(show.PosterPath),
		Rating:    show.VoteAverage,
		Year:      releaseYear(show.FirstAirDate),
	}
}

func (p *Provider) tvToMetadata(show *tmdb.TV) *provider.EnrichedMetadata {
	genres := make([]string, 0, len(show.Genres))
	for _, g := range show.Genres {
		genres = append(genres, g.Name)
	}

	return &provider.EnrichedMetadata{
		ID:        strconv.Itoa(show.ID),
		Title:     show.Name,
		Overview:  show.Overview,
		PosterURL: posterURL(show.PosterPath),
		Rating:    show.VoteAverage,
		Genres:    genres,
		Year:      releaseYear(show.FirstAirDate),
	}
}

func (p *Provider) seasonToMetadata(season *tmdb.TvSeason, showID string) *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:         showID,
		SeasonName: season.Name,
		SeasonNum:  season.SeasonNumber,
		Overview:   season.Overview,
		PosterURL:  posterURL(season.PosterPath),
		AirDate:    season.AirDate,
	}
}

func (p *Provider) episodeToMetadata(episode *tmdb.TvEpisode, showID string) *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:          showID,
		EpisodeName: episode.Name,
		SeasonNum:   episode.SeasonNumber,
		EpisodeNum:  episode.EpisodeNumber,
		Overview:    episode.Overview,
		PosterURL:   posterURL(episode.StillPath),
		Rating:      episode.VoteAverage,
		AirDate:     episode.AirDate,
	}
}

func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "401"), strings.Contains(errStr, "unauthorized"):
		return provider.ErrInvalidAPIKey
	case strings.Contains(errStr, "429"), strings.Contains(errStr, "rate limit"):
		return provider.ErrRateLimited
	case strings.Contains(errStr, "503"), strings.Contains(errStr, "unavailable"):
		return provider.ErrAPIUnavailable
	}
	return fmt.Errorf("TMDB API error: %w", err)
}

func parseShowID(showID string) (int, error) {
	id, err := strconv.Atoi(showID)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad show id %q", provider.ErrInvalidResponse, showID)
	}
	return id, nil
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBaseURL + path
}

func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
