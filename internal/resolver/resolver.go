// Package resolver turns a raw release name into an enriched metadata
// record. It orchestrates the pattern-based parser, the metadata provider,
// the AI escalation path, and the resolution cache, and it collapses every
// failure along the way into an Unresolved outcome rather than an error.
package resolver

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"torrentmeta/internal/ai"
	"torrentmeta/internal/cache"
	"torrentmeta/internal/provider"
	"torrentmeta/internal/title"
)

// Status tags a resolution outcome.
type Status int

const (
	// StatusUnresolved means no usable record was found. It is also the
	// only outcome of an engine built without provider credentials.
	StatusUnresolved Status = iota
	// StatusResolved means the record matches the requested depth.
	StatusResolved
	// StatusDegraded means a TV lookup fell back to a shallower record
	// than requested; Depth says how far it got.
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusDegraded:
		return "degraded"
	default:
		return "unresolved"
	}
}

// Depth is how far down the show, season, episode hierarchy a TV lookup
// got. Movie outcomes always carry DepthShow.
type Depth int

const (
	DepthShow Depth = iota
	DepthSeason
	DepthEpisode
)

func (d Depth) String() string {
	switch d {
	case DepthEpisode:
		return "episode"
	case DepthSeason:
		return "season"
	default:
		return "show"
	}
}

// ResolvedMetadata is the enriched record for one identified release.
// Immutable by convention; returned by value through the cache.
//
// Season and Episode always carry the numbers the caller asked for, even
// when the lookup degraded to a shallower record. The achieved depth lives
// on the Outcome, not here.
type ResolvedMetadata struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	PosterURL   string          `json:"poster_url,omitempty"`
	Rating      float32         `json:"rating"`
	Genres      []string        `json:"genres,omitempty"`
	Year        int             `json:"year,omitempty"`
	MediaType   title.MediaType `json:"media_type"`
	Season      int             `json:"season,omitempty"`
	Episode     int             `json:"episode,omitempty"`
	ExternalID  string          `json:"external_id"`
}

// Outcome is the tagged result of one Resolve call. Meta is nil exactly
// when Status is StatusUnresolved.
type Outcome struct {
	Status Status
	Depth  Depth
	Meta   *ResolvedMetadata
}

// clone deep-copies the outcome so cached records are returned by value:
// no two callers ever share a metadata pointer with each other or with the
// cache.
func (o Outcome) clone() Outcome {
	if o.Meta == nil {
		return o
	}
	meta := *o.Meta
	meta.Genres = slices.Clone(meta.Genres)
	o.Meta = &meta
	return o
}

func unresolved() Outcome {
	return Outcome{Status: StatusUnresolved}
}

func resolved(meta ResolvedMetadata, depth Depth) Outcome {
	return Outcome{Status: StatusResolved, Depth: depth, Meta: &meta}
}

func degraded(meta ResolvedMetadata, depth Depth) Outcome {
	return Outcome{Status: StatusDegraded, Depth: depth, Meta: &meta}
}

// Engine resolves release names. Construct with New; the zero value is not
// usable.
type Engine struct {
	provider provider.MetadataProvider
	ai       *ai.Extractor
	cache    *cache.Store[Outcome]
	logger   *slog.Logger
}

// New builds an engine around a provider and an optional AI extractor.
// A nil provider yields a hard-disabled engine: every Resolve call returns
// Unresolved without any network I/O. A nil extractor just skips the AI
// escalation path.
func New(p provider.MetadataProvider, extractor *ai.Extractor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provider: p,
		ai:       extractor,
		cache:    cache.New[Outcome](),
		logger:   logger,
	}
}

// CacheSize reports how many identities the engine has cached, negative
// markers included.
func (e *Engine) CacheSize() int { return e.cache.Size() }

// ClearCache drops every cached outcome.
func (e *Engine) ClearCache() { e.cache.Clear() }

// Resolve identifies rawName and returns its metadata record, a degraded
// record, or Unresolved. The stable id, when available, keys the AI
// extractor's dedup cache. Resolve never returns an error: every provider
// or AI failure is logged and collapsed here.
func (e *Engine) Resolve(ctx context.Context, rawName, stableID string) Outcome {
	id := title.Parse(rawName)
	if id.MediaType == title.MediaTypeUnknown || id.Title == "" {
		return unresolved()
	}
	if e.provider == nil {
		return unresolved()
	}

	key := keyFor(id)
	if entry, ok := e.cache.Get(key); ok {
		if entry.Unresolved {
			return unresolved()
		}
		return entry.Value.clone()
	}

	outcome := e.lookup(ctx, id)

	aiUsed := false
	var aiKey cache.Key
	if outcome.Status == StatusUnresolved {
		if aiID := e.extract(ctx, rawName, stableID, id); aiID != nil {
			k := keyFor(*aiID)
			if entry, ok := e.cache.Get(k); ok {
				// The derived identity was already resolved, or already
				// ruled out; either way there is nothing to search again.
				if !entry.Unresolved {
					outcome = entry.Value.clone()
				}
			} else if retry := e.lookup(ctx, *aiID); retry.Status != StatusUnresolved {
				outcome = retry
				aiKey = k
				aiUsed = true
			}
		}
	}

	// Negative outcomes are cached under the original key only, so a
	// later call with the same raw name short-circuits immediately.
	if outcome.Status == StatusUnresolved {
		e.cache.SetUnresolved(key)
		return outcome
	}

	e.cache.Set(key, outcome.clone())
	if aiUsed && aiKey != key {
		e.cache.Set(aiKey, outcome.clone())
	}
	return outcome
}

// lookup runs the provider chain for one identity: a single movie search,
// or the show, season, episode descent for TV.
func (e *Engine) lookup(ctx context.Context, id title.ParsedIdentity) Outcome {
	if id.MediaType == title.MediaTypeMovie {
		return e.lookupMovie(ctx, id)
	}
	return e.lookupTV(ctx, id)
}

func (e *Engine) lookupMovie(ctx context.Context, id title.ParsedIdentity) Outcome {
	meta, err := e.provider.SearchMovie(ctx, id.Title, id.Year)
	if err != nil {
		e.logger.Debug("movie search failed", "title", id.Title, "year", id.Year, "error", err)
		return unresolved()
	}
	return resolved(movieRecord(meta, id), DepthShow)
}

func (e *Engine) lookupTV(ctx context.Context, id title.ParsedIdentity) Outcome {
	show, err := e.provider.SearchTVShow(ctx, id.Title)
	if err != nil {
		e.logger.Debug("show search failed", "title", id.Title, "error", err)
		return unresolved()
	}

	if id.Season == 0 {
		return resolved(tvRecord(show, nil, id), DepthShow)
	}

	if id.Episode == 0 {
		season, err := e.provider.GetSeasonInfo(ctx, show.ID, id.Season)
		if err != nil {
			e.logger.Debug("season detail failed", "show", show.Title, "season", id.Season, "error", err)
			return degraded(tvRecord(show, nil, id), DepthShow)
		}
		return resolved(tvRecord(show, season, id), DepthSeason)
	}

	episode, err := e.provider.GetEpisodeInfo(ctx, show.ID, id.Season, id.Episode)
	if err == nil {
		return resolved(tvRecord(show, episode, id), DepthEpisode)
	}
	e.logger.Debug("episode detail failed",
		"show", show.Title, "season", id.Season, "episode", id.Episode, "error", err)

	season, err := e.provider.GetSeasonInfo(ctx, show.ID, id.Season)
	if err != nil {
		e.logger.Debug("season detail failed", "show", show.Title, "season", id.Season, "error", err)
		return degraded(tvRecord(show, nil, id), DepthShow)
	}
	return degraded(tvRecord(show, season, id), DepthSeason)
}

// extract escalates to the AI extractor and returns a usable alternative
// identity, or nil when there is none worth retrying.
func (e *Engine) extract(ctx context.Context, rawName, stableID string, parsed title.ParsedIdentity) *title.ParsedIdentity {
	if e.ai == nil || !e.ai.Enabled() {
		return nil
	}
	aiID := e.ai.Extract(ctx, rawName, stableID)
	if aiID == nil || aiID.Title == "" {
		return nil
	}
	if aiID.MediaType == parsed.MediaType && strings.EqualFold(aiID.Title, parsed.Title) {
		// Same identity the provider already rejected.
		return nil
	}
	// Keep the requested season and episode when the model omits them.
	if aiID.MediaType == title.MediaTypeTV && parsed.MediaType == title.MediaTypeTV && aiID.Season == 0 {
		aiID.Season, aiID.Episode = parsed.Season, parsed.Episode
	}
	return aiID
}

func keyFor(id title.ParsedIdentity) cache.Key {
	return cache.NewKey(id.Title, id.Year, id.Season, id.Episode)
}

func movieRecord(meta *provider.EnrichedMetadata, id title.ParsedIdentity) ResolvedMetadata {
	year := meta.Year
	if year == 0 {
		year = id.Year
	}
	return ResolvedMetadata{
		Title:       meta.Title,
		Description: meta.Overview,
		PosterURL:   meta.PosterURL,
		Rating:      meta.Rating,
		Genres:      meta.Genres,
		Year:        year,
		MediaType:   title.MediaTypeMovie,
		ExternalID:  meta.ID,
	}
}

// tvRecord merges a show record with an optional season or episode detail.
// The detail's overview, poster and rating win when present; the show
// supplies the title, genres and year, which detail records usually lack.
func tvRecord(show, detail *provider.EnrichedMetadata, id title.ParsedIdentity) ResolvedMetadata {
	m := ResolvedMetadata{
		Title:       show.Title,
		Description: show.Overview,
		PosterURL:   show.PosterURL,
		Rating:      show.Rating,
		Genres:      show.Genres,
		Year:        show.Year,
		MediaType:   title.MediaTypeTV,
		Season:      id.Season,
		Episode:     id.Episode,
		ExternalID:  show.ID,
	}
	if detail == nil {
		return m
	}
	if detail.Overview != "" {
		m.Description = detail.Overview
	}
	if detail.PosterURL != "" {
		m.PosterURL = detail.PosterURL
	}
	if detail.Rating > 0 {
		m.Rating = detail.Rating
	}
	return m
}
