package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"wanderwise/models"
	apierrors "wanderwise/utils/errors"
)

const (
	weatherCacheTTL     = 30 * time.Minute
	weatherForecastDays = 7
)

type DailyForecast struct {
	Date                     string  `json:"date"`
	TempMaxC                 float64 `json:"tempMaxC"`
	TempMinC                 float64 `json:"tempMinC"`
	PrecipitationProbability float64 `json:"precipitationProbability"`
	WeatherCode              int     `json:"weatherCode"`
}

type Weather struct {
	Destination string          `json:"destination"`
	Location    GeoPoint        `json:"location"`
	Timezone    string          `json:"timezone"`
	Days        []DailyForecast `json:"days"`
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Daily    struct {
		Time             []string  `json:"time"`
		TempMax          []float64 `json:"temperature_2m_max"`
		TempMin          []float64 `json:"temperature_2m_min"`
		PrecipitationMax []float64 `json:"precipitation_probability_max"`
		WeatherCode      []int     `json:"weathercode"`
	} `json:"daily"`
}

// WeatherService fetches a daily forecast for a trip's destination from an
// Open-Meteo compatible API.
type WeatherService struct {
	baseURL string
	client  *http.Client
	geo     *GeoService
	memo    *cache.Cache
	logger  *zap.Logger
}

func NewWeatherService(baseURL string, client *http.Client, geo *GeoService, logger *zap.Logger) *WeatherService {
	return &WeatherService{
		baseURL: baseURL,
		client:  client,
		geo:     geo,
		memo:    cache.New(weatherCacheTTL, 2*weatherCacheTTL),
		logger:  logger,
	}
}

// ForTrip returns the forecast at the trip's destination.
func (s *WeatherService) ForTrip(ctx context.Context, trip *models.Trip) (*Weather, error) {
	point, err := s.geo.Geocode(ctx, trip.Destination)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%.3f,%.3f", point.Latitude, point.Longitude)
	if v, ok := s.memo.Get(key); ok {
		w := v.(Weather)
		w.Destination = trip.Destination
		return &w, nil
	}

	forecast, err := s.fetch(ctx, point.Latitude, point.Longitude)
	if err != nil {
		s.logger.Warn("weather request failed", zap.String("destination", trip.Destination), zap.Error(err))
		return nil, apierrors.Upstream(err, "weather")
	}
	w := Weather{
		Destination: trip.Destination,
		Location:    *point,
		Timezone:    forecast.Timezone,
		Days:        dailyForecasts(forecast),
	}
	s.memo.SetDefault(key, w)
	return &w, nil
}

func (s *WeatherService) fetch(ctx context.Context, lat, lon float64) (*openMeteoResponse, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,weathercode")
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(weatherForecastDays))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	return &body, nil
}

// dailyForecasts zips Open-Meteo's parallel arrays. Short arrays leave the
// matching fields zero.
func dailyForecasts(r *openMeteoResponse) []DailyForecast {
	at := func(xs []float64, i int) float64 {
		if i < len(xs) {
			return xs[i]
		}
		return 0
	}
	days := make([]DailyForecast, len(r.Daily.Time))
	for i, date := range r.Daily.Time {
		days[i] = DailyForecast{
			Date:                     date,
			TempMaxC:                 at(r.Daily.TempMax, i),
			TempMinC:                 at(r.Daily.TempMin, i),
			PrecipitationProbability: at(r.Daily.PrecipitationMax, i),
		}
		if i < len(r.Daily.WeatherCode) {
			days[i].WeatherCode = r.Daily.WeatherCode[i]
		}
	}
	return days
}
