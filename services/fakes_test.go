package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// fakeModel answers with canned replies chosen by reply.
type fakeModel struct {
	mu    sync.Mutex
	calls []CompletionRequest
	reply func(req CompletionRequest) (string, error)
}

func (m *fakeModel) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.reply(req)
}

func (m *fakeModel) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.calls...)
}

// tripModel routes itinerary and lodging prompts to the given replies.
func tripModel(plan, lodging string) *fakeModel {
	return &fakeModel{reply: func(req CompletionRequest) (string, error) {
		if strings.HasPrefix(req.Prompt, "Generate a Travel Plan") {
			return plan, nil
		}
		return lodging, nil
	}}
}

// fakeImages serves image lookups from fixed tables.
type fakeImages struct {
	mu      sync.Mutex
	one     map[string]ImageLookup
	many    map[string][]string
	queries []string
}

func (f *fakeImages) FindOne(ctx context.Context, query string) ImageLookup {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if l, ok := f.one[query]; ok {
		return l
	}
	return ImageLookup{Status: LookupNoMatch}
}

func (f *fakeImages) FindMany(ctx context.Context, query string, limit int) ([]string, LookupStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	urls, ok := f.many[query]
	if !ok {
		return []string{}, LookupFailed
	}
	return urls, LookupFound
}

var testLogger = zap.NewNop()

const samplePlan = "```json\n" + `{
  "tripDetails": {"destination": "Lisbon", "startDate": "2025-06-01", "endDate": "2025-06-02", "withWhom": "Friends", "pets": "No Pets", "goals": ["Food"]},
  "itinerary": {
    "day10": [{"placeName": "Late Stop", "placeDetails": "x", "placeImageUrl": "PLACEHOLDER_IMAGE_URL_3", "geoCoordinates": {"latitude": "38.70", "longitude": "-9.13"}, "ticketPricing": "Free", "travelTime": "10 min"}],
    "day1": [
      {"placeName": "Belem Tower", "placeDetails": "Fort", "placeImageUrl": "PLACEHOLDER_IMAGE_URL_1", "geoCoordinates": {"latitude": 38.6916, "longitude": -9.2160}, "ticketPricing": "EUR 6", "travelTime": "Start"},
      {"placeName": "Jeronimos Monastery", "placeDetails": "Monastery", "placeImageUrl": "PLACEHOLDER_IMAGE_URL_2", "geoCoordinates": {"latitude": 38.6979, "longitude": -9.2068}, "ticketPricing": "EUR 10", "travelTime": "5 min"}
    ],
    "day2": [{"placeName": "Alfama", "placeDetails": "Old town", "placeImageUrl": "", "geoCoordinates": {"latitude": 38.7118, "longitude": -9.1300}, "ticketPricing": 0, "travelTime": "15 min"}]
  },
  "bestTimesToVisit": "Spring"
}` + "\n```"

const sampleLodging = `{
  "hotels": [
    {"hotelName": "H1", "address": "A1", "geoCoordinates": {"latitude": 38.7, "longitude": -9.1}, "starRating": "4 stars", "avgCost": "$120", "distanceFromCityCenter": 1.2, "hotelImageURL": "x"},
    {"hotelName": "H2", "address": "A2", "geoCoordinates": {"latitude": 38.7, "longitude": -9.1}, "starRating": 5, "avgCost": 300, "distanceFromCityCenter": 0.4, "hotelImageURL": "y"}
  ],
  "restaurants": [
    {"restaurantName": "R1", "address": "B1", "geoCoordinates": {"latitude": 38.7, "longitude": -9.1}, "avgCost": 20, "distanceFromCityCenter": 0.5, "restaurantImageURL": "z"}
  ]
}`
