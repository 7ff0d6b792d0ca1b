package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// LookupStatus tells a caller whether an image search produced a usable URL.
type LookupStatus int

const (
	LookupFound LookupStatus = iota
	LookupNoMatch
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNoMatch:
		return "no_match"
	default:
		return "failed"
	}
}

// ImageLookup is the result of a single-image search.
type ImageLookup struct {
	URL    string
	Status LookupStatus
}

// DefaultGroupSize is how many images FindMany asks for when limit is not positive.
const DefaultGroupSize = 10

type searchResult struct {
	URL string `json:"url"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// ImageService searches an Openverse-compatible image API. Lookups never
// return an error; failures are reported through LookupStatus and logged.
type ImageService struct {
	baseURL string
	client  *http.Client
	cache   ImageCache
	logger  *zap.Logger
}

// NewImageService builds a search client. cache may be nil.
func NewImageService(baseURL string, client *http.Client, cache ImageCache, logger *zap.Logger) *ImageService {
	return &ImageService{baseURL: baseURL, client: client, cache: cache, logger: logger}
}

// FindOne returns the first result for query.
func (s *ImageService) FindOne(ctx context.Context, query string) ImageLookup {
	urls, status := s.search(ctx, query, 1)
	if status != LookupFound {
		return ImageLookup{Status: status}
	}
	return ImageLookup{URL: urls[0], Status: LookupFound}
}

// FindMany returns up to limit non-empty result URLs for query. On failure the
// slice is empty and the status is LookupFailed.
func (s *ImageService) FindMany(ctx context.Context, query string, limit int) ([]string, LookupStatus) {
	if limit <= 0 {
		limit = DefaultGroupSize
	}
	urls, status := s.search(ctx, query, limit)
	if urls == nil {
		urls = []string{}
	}
	return urls, status
}

func (s *ImageService) search(ctx context.Context, query string, limit int) ([]string, LookupStatus) {
	if s.cache != nil {
		if urls, ok := s.cache.Get(ctx, query, limit); ok && len(urls) > 0 {
			return urls, LookupFound
		}
	}

	urls, err := s.fetch(ctx, query, limit)
	if err != nil {
		s.logger.Warn("image search failed", zap.String("query", query), zap.Error(err))
		return nil, LookupFailed
	}
	if len(urls) == 0 {
		return nil, LookupNoMatch
	}
	if s.cache != nil {
		s.cache.Set(ctx, query, limit, urls)
	}
	return urls, LookupFound
}

func (s *ImageService) fetch(ctx context.Context, query string, limit int) ([]string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid image search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image search returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode image search response: %w", err)
	}
	urls := lo.FilterMap(body.Results, func(r searchResult, _ int) (string, bool) {
		return r.URL, r.URL != ""
	})
	if len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}
