// Package listing is the enrichment boundary for torrent listings: it fans
// a batch of raw release names out over a worker pool, resolves each one,
// and returns flat records ready to embed in a listing payload. Items whose
// resolution fails render bare instead of failing the batch.
package listing

import (
	"context"
	"log/slog"
	"sync"

	"torrentmeta/internal/resolver"
)

const defaultWorkerCount = 10

// RawItem is one unenriched listing entry: the release name and, when the
// caller has one, a stable content identifier such as an info hash.
type RawItem struct {
	Name     string `json:"name"`
	StableID string `json:"stable_id,omitempty"`
}

// Item is the flat enriched record for one listing entry. When Resolved is
// false only Name and StableID carry data.
type Item struct {
	Name     string `json:"name"`
	StableID string `json:"stable_id,omitempty"`
	Resolved bool   `json:"resolved"`

	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	PosterURL   string   `json:"poster_url,omitempty"`
	Rating      float32  `json:"rating,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Year        int      `json:"year,omitempty"`
	MediaType   string   `json:"media_type,omitempty"`
	Season      int      `json:"season,omitempty"`
	Episode     int      `json:"episode,omitempty"`
}

// Enricher resolves batches of raw items concurrently.
type Enricher struct {
	engine      *resolver.Engine
	workerCount int
	logger      *slog.Logger
}

// NewEnricher builds an enricher over engine. A non-positive workerCount
// selects the default pool size.
func NewEnricher(engine *resolver.Engine, workerCount int, logger *slog.Logger) *Enricher {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{engine: engine, workerCount: workerCount, logger: logger}
}

type job struct {
	index int
	raw   RawItem
}

// EnrichAll resolves every raw item and returns the enriched records in
// input order. Cancelling ctx stops dispatching new work; items not reached
// come back bare.
func (e *Enricher) EnrichAll(ctx context.Context, raws []RawItem) []Item {
	items := make([]Item, len(raws))
	for i, raw := range raws {
		items[i] = Item{Name: raw.Name, StableID: raw.StableID}
	}
	if len(raws) == 0 {
		return items
	}

	workerCount := min(e.workerCount, len(raws))
	workCh := make(chan job)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range workCh {
				if ctx.Err() != nil {
					return
				}
				item := e.enrich(ctx, j.raw)
				mu.Lock()
				items[j.index] = item
				mu.Unlock()
			}
		}()
	}

	for i, raw := range raws {
		select {
		case workCh <- job{index: i, raw: raw}:
		case <-ctx.Done():
			close(workCh)
			wg.Wait()
			return items
		}
	}
	close(workCh)
	wg.Wait()
	return items
}

func (e *Enricher) enrich(ctx context.Context, raw RawItem) Item {
	item := Item{Name: raw.Name, StableID: raw.StableID}

	outcome := e.engine.Resolve(ctx, raw.Name, raw.StableID)
	if outcome.Status == resolver.StatusUnresolved {
		e.logger.Debug("listing item left bare", "name", raw.Name)
		return item
	}

	meta := outcome.Meta
	item.Resolved = true
	item.Title = meta.Title
	item.Description = meta.Description
	item.PosterURL = meta.PosterURL
	item.Rating = meta.Rating
	item.Genres = meta.Genres
	item.Year = meta.Year
	item.MediaType = string(meta.MediaType)
	item.Season = meta.Season
	item.Episode = meta.Episode
	return item
}
