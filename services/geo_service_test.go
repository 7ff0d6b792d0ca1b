package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"wanderwise/models"
	apierrors "wanderwise/utils/errors"
)

func newGeoServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("Expected format=json, got %s", r.URL.RawQuery)
		}
		switch r.URL.Query().Get("q") {
		case "Lisbon":
			w.Write([]byte(`[{"lat":"38.7223","lon":"-9.1393","display_name":"Lisboa, Portugal"}]`))
		case "Porto":
			w.Write([]byte(`[{"lat":"41.1579","lon":"-8.6291","display_name":"Porto, Portugal"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Query().Get("latitude") != "38.7223" {
			t.Errorf("Unexpected forecast query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"timezone": "Europe/Lisbon",
			"daily": map[string]any{
				"time":                          []string{"2025-06-01", "2025-06-02"},
				"temperature_2m_max":            []float64{24.1, 25.3},
				"temperature_2m_min":            []float64{16.0, 17.2},
				"precipitation_probability_max": []float64{10},
				"weathercode":                   []int{1, 3},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGeocode(t *testing.T) {
	var hits int32
	srv := newGeoServer(t, &hits)
	geo := NewGeoService(srv.URL+"/search", srv.Client(), testLogger)
	ctx := context.Background()

	point, err := geo.Geocode(ctx, "Lisbon")
	if err != nil {
		t.Fatalf("Geocode failed: %v", err)
	}
	if point.Latitude != 38.7223 || point.Longitude != -9.1393 || point.DisplayName != "Lisboa, Portugal" {
		t.Errorf("Unexpected point %+v", point)
	}
	if _, err := geo.Geocode(ctx, " lisbon "); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("Expected memoised second lookup, got %d requests", n)
	}

	if _, err := geo.Geocode(ctx, "Atlantis"); !errors.Is(err, apierrors.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if _, err := geo.Geocode(ctx, ""); !errors.Is(err, apierrors.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestRoute(t *testing.T) {
	var hits int32
	srv := newGeoServer(t, &hits)
	geo := NewGeoService(srv.URL+"/search", srv.Client(), testLogger)

	route, err := geo.Route(context.Background(), "Lisbon", "Porto")
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if route.Source.DisplayName != "Lisboa, Portugal" || route.Destination.DisplayName != "Porto, Portugal" {
		t.Errorf("Unexpected endpoints %+v", route)
	}
	// Lisbon to Porto is roughly 274 km as the crow flies.
	if math.Abs(route.DistanceKm-274) > 5 {
		t.Errorf("Unexpected distance %.1f km", route.DistanceKm)
	}

	if _, err := geo.Route(context.Background(), "Lisbon", "Atlantis"); err == nil {
		t.Error("Expected error when one end cannot be found")
	}
}

func TestWeatherForTrip(t *testing.T) {
	var hits int32
	srv := newGeoServer(t, &hits)
	geo := NewGeoService(srv.URL+"/search", srv.Client(), testLogger)
	weather := NewWeatherService(srv.URL+"/forecast", srv.Client(), geo, testLogger)
	trip := &models.Trip{ID: "t1", Destination: "Lisbon"}

	w, err := weather.ForTrip(context.Background(), trip)
	if err != nil {
		t.Fatalf("ForTrip failed: %v", err)
	}
	if w.Timezone != "Europe/Lisbon" || len(w.Days) != 2 {
		t.Fatalf("Unexpected weather %+v", w)
	}
	if w.Days[0].TempMaxC != 24.1 || w.Days[0].PrecipitationProbability != 10 || w.Days[1].WeatherCode != 3 {
		t.Errorf("Unexpected first days %+v", w.Days)
	}
	if w.Days[1].PrecipitationProbability != 0 {
		t.Errorf("Expected missing values to stay zero, got %v", w.Days[1].PrecipitationProbability)
	}

	if _, err := weather.ForTrip(context.Background(), trip); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("Expected geocode and forecast once each, got %d requests", n)
	}
}
