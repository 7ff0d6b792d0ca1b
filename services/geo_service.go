package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apierrors "wanderwise/utils/errors"
)

const (
	geoCacheTTL     = 6 * time.Hour
	geoCacheCleanup = 30 * time.Minute
	earthRadiusKm   = 6371.0
)

type GeoPoint struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName"`
}

// Route is the pair of endpoints a client draws a route between.
type Route struct {
	Source      GeoPoint `json:"source"`
	Destination GeoPoint `json:"destination"`
	DistanceKm  float64  `json:"distanceKm"`
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// GeoService resolves free-text addresses through a Nominatim-compatible
// search API. Results are memoised in process.
type GeoService struct {
	baseURL string
	client  *http.Client
	memo    *cache.Cache
	logger  *zap.Logger
}

func NewGeoService(baseURL string, client *http.Client, logger *zap.Logger) *GeoService {
	return &GeoService{
		baseURL: baseURL,
		client:  client,
		memo:    cache.New(geoCacheTTL, geoCacheCleanup),
		logger:  logger,
	}
}

// Geocode returns the best match for address.
func (s *GeoService) Geocode(ctx context.Context, address string) (*GeoPoint, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apierrors.Validation("Address is required")
	}
	key := strings.ToLower(address)
	if v, ok := s.memo.Get(key); ok {
		p := v.(GeoPoint)
		return &p, nil
	}

	point, err := s.search(ctx, address)
	if err != nil {
		return nil, err
	}
	s.memo.SetDefault(key, *point)
	return point, nil
}

func (s *GeoService) search(ctx context.Context, address string) (*GeoPoint, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, apierrors.Upstream(err, "geocoding")
	}
	q := u.Query()
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apierrors.Upstream(err, "geocoding")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "wanderwise/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("geocoding request failed", zap.String("address", address), zap.Error(err))
		return nil, apierrors.Upstream(err, "geocoding")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apierrors.Upstream(fmt.Errorf("status %d", resp.StatusCode), "geocoding")
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, apierrors.Upstream(err, "geocoding")
	}
	if len(places) == 0 {
		return nil, apierrors.NewAPIError(apierrors.ErrNotFound.Code, "Address not found", http.StatusNotFound)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, apierrors.Upstream(err, "geocoding")
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, apierrors.Upstream(err, "geocoding")
	}
	return &GeoPoint{Latitude: lat, Longitude: lon, DisplayName: places[0].DisplayName}, nil
}

// Route geocodes both ends concurrently.
func (s *GeoService) Route(ctx context.Context, source, destination string) (*Route, error) {
	var from, to *GeoPoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.Geocode(gctx, source)
		from = p
		return err
	})
	g.Go(func() error {
		p, err := s.Geocode(gctx, destination)
		to = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Route{Source: *from, Destination: *to, DistanceKm: haversineKm(*from, *to)}, nil
}

// haversineKm is the great-circle distance between a and b.
func haversineKm(a, b GeoPoint) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
