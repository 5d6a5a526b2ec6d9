// Package provider defines the capability surface the resolver expects from
// an external media metadata database, plus the normalized record shape all
// provider responses are decoded into before they reach the resolver.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrNoResults means the provider answered but had no match.
	ErrNoResults = errors.New("no results found")
	// ErrInvalidAPIKey means the provider rejected our credentials.
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrRateLimited means the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrAPIUnavailable means the provider could not be reached or is down.
	ErrAPIUnavailable = errors.New("API unavailable")
	// ErrInvalidResponse means the provider returned a payload that could
	// not be decoded into an EnrichedMetadata.
	ErrInvalidResponse = errors.New("invalid provider response")
)

// MetadataProvider is the swappable search/detail surface of an external
// media database. Show identifiers are opaque strings owned by the concrete
// provider (TMDB uses numeric ids, OMDb uses IMDb ids).
type MetadataProvider interface {
	SearchMovie(ctx context.Context, name string, year int) (*EnrichedMetadata, error)
	SearchTVShow(ctx context.Context, name string) (*EnrichedMetadata, error)
	GetSeasonInfo(ctx context.Context, showID string, season int) (*EnrichedMetadata, error)
	GetEpisodeInfo(ctx context.Context, showID string, season, episode int) (*EnrichedMetadata, error)
}

// EnrichedMetadata is the single normalized shape for every provider
// response: search candidates, season details and episode details all decode
// into it at the client boundary.
type EnrichedMetadata struct {
	ID        string
	Title     string
	Overview  string
	PosterURL string
	Rating    float32
	Genres    []string
	Year      int

	// Season/episode detail fields; zero outside TV detail lookups.
	SeasonNum   int
	EpisodeNum  int
	SeasonName  string
	EpisodeName string
	AirDate     string
}
