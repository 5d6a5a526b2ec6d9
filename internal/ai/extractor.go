// Package ai is the escalation path for release names the pattern grammar
// cannot identify: it asks a language model for the identity and memoizes
// the answer (including failures) so each input costs at most one outbound
// call per process lifetime.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"torrentmeta/internal/title"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
)

// jsonObjectRe rescues the first {...} block from a response that wraps the
// JSON in prose.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*?\}`)

// Extractor asks the Gemini generateContent API to identify a release name.
// Without an API key it is permanently disabled and every call returns nil.
type Extractor struct {
	apiKey  string
	baseURL string
	model   string
	httpc   *http.Client
	logger  *slog.Logger

	// results memoizes outcomes per stable id (or raw name), nil included,
	// so unparseable names do not trigger repeated failing calls.
	results *gocache.Cache

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewExtractor creates an extractor. An empty API key yields a disabled
// extractor that never performs network I/O.
func NewExtractor(apiKey string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		apiKey:      strings.TrimSpace(apiKey),
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		httpc:       &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		results:     gocache.New(gocache.NoExpiration, 0),
		minInterval: 100 * time.Millisecond,
	}
}

// SetBaseURL points the extractor at a different API host (tests).
func (e *Extractor) SetBaseURL(baseURL string) { e.baseURL = strings.TrimRight(baseURL, "/") }

// Enabled reports whether the extractor holds credentials.
func (e *Extractor) Enabled() bool { return e.apiKey != "" }

// Extract asks the model for the identity behind rawName. The stable id,
// when available, keys the dedup cache so a renamed copy of the same
// content reuses the previous answer. Extract never returns an error: any
// transport or parse failure yields nil, and the nil is cached too.
func (e *Extractor) Extract(ctx context.Context, rawName, stableID string) *title.ParsedIdentity {
	if strings.TrimSpace(rawName) == "" {
		return nil
	}

	cacheKey := stableID
	if cacheKey == "" {
		cacheKey = rawName
	}
	if v, found := e.results.Get(cacheKey); found {
		id, _ := v.(*title.ParsedIdentity)
		return id
	}

	if !e.Enabled() {
		return nil
	}

	id, err := e.call(ctx, rawName)
	if err != nil {
		e.logger.Debug("ai extraction failed", "name", rawName, "error", err)
		id = nil
	} else {
		e.logger.Debug("ai extraction succeeded",
			"name", rawName,
			"title", id.Title,
			"media_type", id.MediaType,
		)
	}

	e.results.Set(cacheKey, id, gocache.NoExpiration)
	return id
}

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// geminiResponse is the generateContent response body.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// identityPayload is the JSON object the model is instructed to return.
type identityPayload struct {
	Title     string `json:"title"`
	MediaType string `json:"media_type"`
	Year      int    `json:"year"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
}

func (e *Extractor) call(ctx context.Context, rawName string) (*title.ParsedIdentity, error) {
	e.throttle()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: buildPrompt(rawName)}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			// Low temperature keeps extraction deterministic.
			Temperature:     0.1,
			MaxOutputTokens: 512,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := e.httpc.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, body)
		}

		var geminiResp geminiResponse
		if err := json.Unmarshal(body, &geminiResp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if geminiResp.Error != nil {
			return nil, fmt.Errorf("API error: %s", geminiResp.Error.Message)
		}
		if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
			return nil, errors.New("empty response")
		}

		return parseIdentity(geminiResp.Candidates[0].Content.Parts[0].Text)
	}

	return nil, fmt.Errorf("request failed after 3 attempts: %w", lastErr)
}

// throttle spaces requests out by minInterval.
func (e *Extractor) throttle() {
	e.throttleMu.Lock()
	defer e.throttleMu.Unlock()
	if since := time.Since(e.lastRequest); since < e.minInterval {
		time.Sleep(e.minInterval - since)
	}
	e.lastRequest = time.Now()
}

// parseIdentity turns the model's text answer into an identity. It accepts
// a bare JSON object, a fenced code block, or JSON embedded in prose.
func parseIdentity(text string) (*title.ParsedIdentity, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payload identityPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		match := jsonObjectRe.FindString(cleaned)
		if match == "" {
			return nil, fmt.Errorf("no JSON object in response: %q", text)
		}
		if err := json.Unmarshal([]byte(match), &payload); err != nil {
			return nil, fmt.Errorf("parse extracted JSON: %w", err)
		}
	}

	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		return nil, errors.New("model returned empty title")
	}

	id := &title.ParsedIdentity{
		Title:   payload.Title,
		Year:    payload.Year,
		Season:  payload.Season,
		Episode: payload.Episode,
	}

	switch payload.MediaType {
	case "tv":
		id.MediaType = title.MediaTypeTV
	default:
		id.MediaType = title.MediaTypeMovie
	}

	// Normalize to the identity invariants: movies carry no season or
	// episode, and an episode number is meaningless without its season.
	if id.MediaType == title.MediaTypeMovie {
		id.Season, id.Episode = 0, 0
	}
	if id.Season == 0 {
		id.Episode = 0
	}

	return id, nil
}
