package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"torrentmeta/internal/ai"
	"torrentmeta/internal/provider"
	"torrentmeta/internal/title"
)

type stubProvider struct {
	movieCalls   int
	showCalls    int
	seasonCalls  int
	episodeCalls int

	searchMovie  func(name string, year int) (*provider.EnrichedMetadata, error)
	searchTVShow func(name string) (*provider.EnrichedMetadata, error)
	seasonInfo   func(showID string, season int) (*provider.EnrichedMetadata, error)
	episodeInfo  func(showID string, season, episode int) (*provider.EnrichedMetadata, error)
}

func (s *stubProvider) SearchMovie(_ context.Context, name string, year int) (*provider.EnrichedMetadata, error) {
	s.movieCalls++
	if s.searchMovie == nil {
		return nil, provider.ErrNoResults
	}
	return s.searchMovie(name, year)
}

func (s *stubProvider) SearchTVShow(_ context.Context, name string) (*provider.EnrichedMetadata, error) {
	s.showCalls++
	if s.searchTVShow == nil {
		return nil, provider.ErrNoResults
	}
	return s.searchTVShow(name)
}

func (s *stubProvider) GetSeasonInfo(_ context.Context, showID string, season int) (*provider.EnrichedMetadata, error) {
	s.seasonCalls++
	if s.seasonInfo == nil {
		return nil, provider.ErrNoResults
	}
	return s.seasonInfo(showID, season)
}

func (s *stubProvider) GetEpisodeInfo(_ context.Context, showID string, season, episode int) (*provider.EnrichedMetadata, error) {
	s.episodeCalls++
	if s.episodeInfo == nil {
		return nil, provider.ErrNoResults
	}
	return s.episodeInfo(showID, season, episode)
}

func (s *stubProvider) totalCalls() int {
	return s.movieCalls + s.showCalls + s.seasonCalls + s.episodeCalls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func gotShow() *provider.EnrichedMetadata {
	return &provider.EnrichedMetadata{
		ID:        "1399",
		Title:     "Game of Thrones",
		Overview:  "Seven noble families fight for control of Westeros.",
		PosterURL: "https://image.tmdb.org/t/p/w500/got.jpg",
		Rating:    8.4,
		Genres:    []string{"Drama", "Fantasy"},
		Year:      2011,
	}
}

func TestResolveUnknownIdentity(t *testing.T) {
	p := &stubProvider{}
	e := New(p, nil, testLogger())

	got := e.Resolve(context.Background(), "", "")
	if got.Status != StatusUnresolved {
		t.Errorf("Resolve(\"\") status = %v, want unresolved", got.Status)
	}
	if p.totalCalls() != 0 {
		t.Errorf("provider calls = %d, want 0", p.totalCalls())
	}
	if e.CacheSize() != 0 {
		t.Errorf("cache size = %d, want 0 (unknown identities are not cached)", e.CacheSize())
	}
}

func TestResolveMovie(t *testing.T) {
	p := &stubProvider{
		searchMovie: func(name string, year int) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{
				ID:       "603",
				Title:    "The Matrix",
				Overview: "A computer hacker learns about the true nature of reality.",
				Rating:   8.2,
				Genres:   []string{"Action", "Science Fiction"},
				Year:     1999,
			}, nil
		},
	}
	e := New(p, nil, testLogger())

	got := e.Resolve(context.Background(), "The.Matrix.1999.1080p.BluRay.x264", "")
	if got.Status != StatusResolved {
		t.Fatalf("Resolve() status = %v, want resolved", got.Status)
	}
	want := &ResolvedMetadata{
		Title:       "The Matrix",
		Description: "A computer hacker learns about the true nature of reality.",
		Rating:      8.2,
		Genres:      []string{"Action", "Science Fiction"},
		Year:        1999,
		MediaType:   title.MediaTypeMovie,
		ExternalID:  "603",
	}
	if diff := cmp.Diff(want, got.Meta); diff != "" {
		t.Errorf("Resolve() metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveCacheHitSuppressesCalls(t *testing.T) {
	p := &stubProvider{
		searchMovie: func(name string, year int) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{ID: "603", Title: "The Matrix", Year: 1999}, nil
		},
	}
	e := New(p, nil, testLogger())
	ctx := context.Background()

	first := e.Resolve(ctx, "The.Matrix.1999.1080p", "")
	second := e.Resolve(ctx, "the.matrix.1999.720p", "")

	if p.movieCalls != 1 {
		t.Errorf("movie searches = %d, want 1 (second call served from cache)", p.movieCalls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached outcome differs (-first +second):\n%s", diff)
	}
}

func TestResolveNegativeCaching(t *testing.T) {
	p := &stubProvider{}
	e := New(p, nil, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got := e.Resolve(ctx, "No.Such.Film.2020.1080p", "")
		if got.Status != StatusUnresolved {
			t.Errorf("Resolve() call %d status = %v, want unresolved", i+1, got.Status)
		}
	}
	if p.movieCalls != 1 {
		t.Errorf("movie searches = %d, want 1 (unresolved marker cached)", p.movieCalls)
	}
}

func TestResolveEpisode(t *testing.T) {
	p := &stubProvider{
		searchTVShow: func(name string) (*provider.EnrichedMetadata, error) {
			return gotShow(), nil
		},
		episodeInfo: func(showID string, season, episode int) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{
				EpisodeName: "Winter Is Coming",
				Overview:    "Ned Stark is torn between his family and an old friend.",
				Rating:      8.9,
				SeasonNum:   season,
				EpisodeNum:  episode,
			}, nil
		},
	}
	e := New(p, nil, testLogger())

	got := e.Resolve(context.Background(), "Game.of.Thrones.S01E01.1080p", "")
	if got.Status != StatusResolved || got.Depth != DepthEpisode {
		t.Fatalf("Resolve() = (%v, %v), want (resolved, episode)", got.Status, got.Depth)
	}
	if got.Meta.Description != "Ned Stark is torn between his family and an old friend." {
		t.Errorf("Description = %q, want the episode overview", got.Meta.Description)
	}
	if got.Meta.Season != 1 || got.Meta.Episode != 1 {
		t.Errorf("Season/Episode = %d/%d, want 1/1", got.Meta.Season, got.Meta.Episode)
	}
}

func TestResolveEpisodeFallsBackToSeason(t *testing.T) {
	p := &stubProvider{
		searchTVShow: func(name string) (*provider.EnrichedMetadata, error) {
			return gotShow(), nil
		},
		seasonInfo: func(showID string, season int) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{
				SeasonName: "Season 3",
				Overview:   "The war of the five kings grinds on.",
				SeasonNum:  season,
			}, nil
		},
	}
	e := New(p, nil, testLogger())

	got := e.Resolve(context.Background(), "Game.of.Thrones.S03E09.720p", "")
	if got.Status != StatusDegraded || got.Depth != DepthSeason {
		t.Fatalf("Resolve() = (%v, %v), want (degraded, season)", got.Status, got.Depth)
	}
	if got.Meta.Description != "The war of the five kings grinds on." {
		t.Errorf("Description = %q, want the season overview", got.Meta.Description)
	}
	// Requested numbers survive the fallback.
	if got.Meta.Season != 3 || got.Meta.Episode != 9 {
		t.Errorf("Season/Episode = %d/%d, want 3/9", got.Meta.Season, got.Meta.Episode)
	}
}

func TestResolveEpisodeFallsBackToShow(t *testing.T) {
	p := &stubProvider{
		searchTVShow: func(name string) (*provider.EnrichedMetadata, error) {
			return gotShow(), nil
		},
	}
	e := New(p, nil, testLogger())

	got := e.Resolve(context.Background(), "Game.of.Thrones.S03E09.720p", "")
	if got.Status != StatusDegraded || got.Depth != DepthShow {
		t.Fatalf("Resolve() = (%v, %v), want (degraded, show)", got.Status, got.Depth)
	}
	if got.Meta.Description != gotShow().Overview {
		t.Errorf("Description = %q, want the show overview", got.Meta.Description)
	}
	if got.Meta.Season != 3 || got.Meta.Episode != 9 {
		t.Errorf("Season/Episode = %d/%d, want 3/9", got.Meta.Season, got.Meta.Episode)
	}
}

func TestResolveSeasonOnly(t *testing.T) {
	p := &stubProvider{
		searchTVShow: func(name string) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{ID: "1419", Title: "Castle", Genres: []string{"Crime"}}, nil
		},
		seasonInfo: func(showID string, season int) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{
				SeasonName: "Season 5",
				Overview:   "Beckett and Castle face the consequences of their choice.",
				SeasonNum:  season,
			}, nil
		},
	}
	e := New(p, nil, testLogger())

	got := e.Resolve(context.Background(), "Castle.S05.720p.WEB-DL.FoxLife", "")
	if got.Status != StatusResolved || got.Depth != DepthSeason {
		t.Fatalf("Resolve() = (%v, %v), want (resolved, season)", got.Status, got.Depth)
	}
	if p.episodeCalls != 0 {
		t.Errorf("episode lookups = %d, want 0 for a whole-season release", p.episodeCalls)
	}
	if got.Meta.Season != 5 || got.Meta.Episode != 0 {
		t.Errorf("Season/Episode = %d/%d, want 5/0", got.Meta.Season, got.Meta.Episode)
	}
}

func TestResolveShowSearchFailureIsTerminal(t *testing.T) {
	p := &stubProvider{}
	e := New(p, nil, testLogger())

	got := e.Resolve(context.Background(), "Unknown.Show.S01E01.1080p", "")
	if got.Status != StatusUnresolved {
		t.Errorf("Resolve() status = %v, want unresolved", got.Status)
	}
	if p.seasonCalls != 0 || p.episodeCalls != 0 {
		t.Errorf("detail lookups = %d/%d, want 0/0 after a failed show search",
			p.seasonCalls, p.episodeCalls)
	}
}

func TestResolveHardDisabledWithoutProvider(t *testing.T) {
	e := New(nil, nil, testLogger())

	got := e.Resolve(context.Background(), "The.Matrix.1999.1080p", "")
	if got.Status != StatusUnresolved {
		t.Errorf("Resolve() status = %v, want unresolved in disabled mode", got.Status)
	}
	if e.CacheSize() != 0 {
		t.Errorf("cache size = %d, want 0 in disabled mode", e.CacheSize())
	}
}

func aiServer(t *testing.T, identity map[string]any) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	text, err := json.Marshal(identity)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": string(text)}}}},
		},
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, string(body))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestResolveAIRetryResolvesAndDualCaches(t *testing.T) {
	server, aiCalls := aiServer(t, map[string]any{
		"title": "The Matrix", "media_type": "movie", "year": 1999,
	})
	extractor := ai.NewExtractor("test-key", testLogger())
	extractor.SetBaseURL(server.URL)

	p := &stubProvider{
		searchMovie: func(name string, year int) (*provider.EnrichedMetadata, error) {
			if name != "The Matrix" {
				return nil, provider.ErrNoResults
			}
			return &provider.EnrichedMetadata{ID: "603", Title: "The Matrix", Year: 1999}, nil
		},
	}
	e := New(p, extractor, testLogger())
	ctx := context.Background()

	got := e.Resolve(ctx, "mtrx-99-final[rarbg]", "")
	if got.Status != StatusResolved {
		t.Fatalf("Resolve() status = %v, want resolved via AI retry", got.Status)
	}
	if got.Meta.Title != "The Matrix" {
		t.Errorf("Title = %q, want %q", got.Meta.Title, "The Matrix")
	}
	if *aiCalls != 1 {
		t.Errorf("AI calls = %d, want 1", *aiCalls)
	}

	// The outcome is cached under the AI-derived key too, so the clean
	// name is a cache hit.
	before := p.movieCalls
	cached := e.Resolve(ctx, "The.Matrix.1999", "")
	if cached.Status != StatusResolved {
		t.Errorf("Resolve(clean name) status = %v, want resolved", cached.Status)
	}
	if p.movieCalls != before {
		t.Errorf("movie searches = %d, want %d (AI-derived key cached)", p.movieCalls, before)
	}
}

func TestResolveAIRetryFailureCachesUnresolved(t *testing.T) {
	server, aiCalls := aiServer(t, map[string]any{
		"title": "Still Nothing", "media_type": "movie",
	})
	extractor := ai.NewExtractor("test-key", testLogger())
	extractor.SetBaseURL(server.URL)

	p := &stubProvider{}
	e := New(p, extractor, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got := e.Resolve(ctx, "Complete.Garbage.2020.1080p", "stable-1")
		if got.Status != StatusUnresolved {
			t.Errorf("Resolve() call %d status = %v, want unresolved", i+1, got.Status)
		}
	}
	if p.movieCalls != 2 {
		t.Errorf("movie searches = %d, want 2 (original guess plus AI retry, once)", p.movieCalls)
	}
	if *aiCalls != 1 {
		t.Errorf("AI calls = %d, want 1", *aiCalls)
	}
}

func TestResolveAISwitchesMediaType(t *testing.T) {
	server, _ := aiServer(t, map[string]any{
		"title": "Dark", "media_type": "tv", "season": 1, "episode": 3,
	})
	extractor := ai.NewExtractor("test-key", testLogger())
	extractor.SetBaseURL(server.URL)

	p := &stubProvider{
		searchTVShow: func(name string) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{ID: "70523", Title: "Dark", Genres: []string{"Sci-Fi"}}, nil
		},
		episodeInfo: func(showID string, season, episode int) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{EpisodeName: "Past and Present", Overview: "It is 1986."}, nil
		},
	}
	e := New(p, extractor, testLogger())

	got := e.Resolve(context.Background(), "drk.1x03.internal.2017", "")
	if got.Status != StatusResolved || got.Depth != DepthEpisode {
		t.Fatalf("Resolve() = (%v, %v), want (resolved, episode)", got.Status, got.Depth)
	}
	if got.Meta.MediaType != title.MediaTypeTV {
		t.Errorf("MediaType = %v, want tv", got.Meta.MediaType)
	}
	if got.Meta.Season != 1 || got.Meta.Episode != 3 {
		t.Errorf("Season/Episode = %d/%d, want 1/3", got.Meta.Season, got.Meta.Episode)
	}
}

func TestResolveAIRetryReusesCachedIdentity(t *testing.T) {
	server, _ := aiServer(t, map[string]any{
		"title": "The Matrix", "media_type": "movie", "year": 1999,
	})
	extractor := ai.NewExtractor("test-key", testLogger())
	extractor.SetBaseURL(server.URL)

	p := &stubProvider{
		searchMovie: func(name string, year int) (*provider.EnrichedMetadata, error) {
			if name != "The Matrix" {
				return nil, provider.ErrNoResults
			}
			return &provider.EnrichedMetadata{ID: "603", Title: "The Matrix", Year: 1999}, nil
		},
	}
	e := New(p, extractor, testLogger())
	ctx := context.Background()

	if got := e.Resolve(ctx, "The.Matrix.1999.1080p", ""); got.Status != StatusResolved {
		t.Fatalf("Resolve(clean name) status = %v, want resolved", got.Status)
	}

	// The garbage name misses, the AI identity maps to the cached record,
	// and the retry search is skipped.
	got := e.Resolve(ctx, "mtrx-99-final[rarbg]", "")
	if got.Status != StatusResolved {
		t.Fatalf("Resolve(garbage name) status = %v, want resolved from cached identity", got.Status)
	}
	if got.Meta.Title != "The Matrix" {
		t.Errorf("Title = %q, want %q", got.Meta.Title, "The Matrix")
	}
	if p.movieCalls != 2 {
		t.Errorf("movie searches = %d, want 2 (failed garbage search only, no retry)", p.movieCalls)
	}

	// The reused record is also cached under the garbage name's key.
	e.Resolve(ctx, "mtrx-99-final[rarbg]", "")
	if p.movieCalls != 2 {
		t.Errorf("movie searches = %d, want 2 after a repeat lookup", p.movieCalls)
	}
}

func TestResolveAISkipsRetryOnCachedUnresolved(t *testing.T) {
	server, _ := aiServer(t, map[string]any{
		"title": "Known Failure", "media_type": "movie", "year": 2020,
	})
	extractor := ai.NewExtractor("test-key", testLogger())
	extractor.SetBaseURL(server.URL)

	p := &stubProvider{}
	e := New(p, extractor, testLogger())
	ctx := context.Background()

	// Seeds the unresolved marker for the identity the AI will derive.
	if got := e.Resolve(ctx, "Known.Failure.2020.1080p", ""); got.Status != StatusUnresolved {
		t.Fatalf("Resolve(seed) status = %v, want unresolved", got.Status)
	}
	if p.movieCalls != 1 {
		t.Fatalf("movie searches = %d, want 1 after seeding", p.movieCalls)
	}

	got := e.Resolve(ctx, "garbage-blob-xyz", "")
	if got.Status != StatusUnresolved {
		t.Errorf("Resolve(garbage name) status = %v, want unresolved", got.Status)
	}
	if p.movieCalls != 2 {
		t.Errorf("movie searches = %d, want 2 (cached unresolved marker suppresses the retry)", p.movieCalls)
	}
}

func TestResolveCacheHitReturnsCopy(t *testing.T) {
	p := &stubProvider{
		searchMovie: func(name string, year int) (*provider.EnrichedMetadata, error) {
			return &provider.EnrichedMetadata{
				ID:     "603",
				Title:  "The Matrix",
				Genres: []string{"Action", "Science Fiction"},
				Year:   1999,
			}, nil
		},
	}
	e := New(p, nil, testLogger())
	ctx := context.Background()

	first := e.Resolve(ctx, "The.Matrix.1999.1080p", "")
	first.Meta.Title = "mutated"
	first.Meta.Genres[0] = "mutated"

	second := e.Resolve(ctx, "The.Matrix.1999.1080p", "")
	if second.Meta.Title != "The Matrix" {
		t.Errorf("Title = %q after mutating a previous result, want %q", second.Meta.Title, "The Matrix")
	}
	if second.Meta.Genres[0] != "Action" {
		t.Errorf("Genres[0] = %q after mutating a previous result, want %q", second.Meta.Genres[0], "Action")
	}

	third := e.Resolve(ctx, "The.Matrix.1999.1080p", "")
	if second.Meta == third.Meta {
		t.Error("two cache hits returned the same metadata pointer, want distinct copies")
	}
}
