package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"testing"

	"wanderwise/models"
	"wanderwise/store/memstore"
	apierrors "wanderwise/utils/errors"
)

func seedTraveler(t *testing.T, st *memstore.MemStore) {
	t.Helper()
	err := st.CreateUser(context.Background(), &models.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Trips: []models.Trip{}})
	if err != nil {
		t.Fatal(err)
	}
}

func lisbonPrefs() models.Preferences {
	return models.Preferences{
		Email:       "asha@example.com",
		Destination: "Lisbon",
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-02",
		WithWhom:    "Friends",
		Goals:       []string{"Food"},
	}
}

func TestCreateTripPipeline(t *testing.T) {
	st := memstore.New()
	seedTraveler(t, st)
	images := &fakeImages{
		one: map[string]ImageLookup{
			"Belem Tower": {URL: "belem.jpg", Status: LookupFound},
			"Alfama":      {Status: LookupFailed},
		},
		many: map[string][]string{"hotel exterior": {"hA"}},
	}
	svc := NewTripService(st, tripModel(samplePlan, sampleLodging), images, testLogger)
	ctx := context.Background()

	trip, err := svc.CreateTrip(ctx, lisbonPrefs())
	if err != nil {
		t.Fatalf("CreateTrip failed: %v", err)
	}

	if got, want := images.queries, []string{"Belem Tower", "Jeronimos Monastery", "Alfama", "Late Stop"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Place lookups in %v, want %v", got, want)
	}
	day1 := trip.Plan.Itinerary["day1"]
	if day1[0].ImageURL != "belem.jpg" {
		t.Errorf("Expected matched image, got %q", day1[0].ImageURL)
	}
	if day1[1].ImageURL != "PLACEHOLDER_IMAGE_URL_2" {
		t.Errorf("Expected model URL kept on no match, got %q", day1[1].ImageURL)
	}
	if trip.Plan.Itinerary["day2"][0].ImageURL != "" {
		t.Errorf("Expected URL untouched on failed lookup, got %q", trip.Plan.Itinerary["day2"][0].ImageURL)
	}

	if trip.Hotels.Hotels[0].ImageURL != "hA" || trip.Hotels.Hotels[1].ImageURL != FallbackHotelImage {
		t.Errorf("Unexpected hotel images %q, %q", trip.Hotels.Hotels[0].ImageURL, trip.Hotels.Hotels[1].ImageURL)
	}
	if trip.Hotels.Restaurants[0].ImageURL != FallbackRestaurantImage {
		t.Errorf("Expected restaurant fallback, got %q", trip.Hotels.Restaurants[0].ImageURL)
	}

	user, _ := st.GetUserByEmail(ctx, "asha@example.com")
	if len(user.Trips) != 1 || user.ActiveTripID != trip.ID {
		t.Fatalf("Expected one active trip, got %d trips, active %q", len(user.Trips), user.ActiveTripID)
	}
	if len(user.Trips[0].ChatHistory) != 0 {
		t.Error("Expected empty transcript on a new trip")
	}

	plan, err := svc.GetPlan(ctx, "asha@example.com", "")
	if err != nil || !reflect.DeepEqual(plan, trip.Plan) {
		t.Errorf("GetPlan mismatch: %v", err)
	}
	hotels, err := svc.GetHotels(ctx, "asha@example.com", "")
	if err != nil || !reflect.DeepEqual(hotels, trip.Hotels) {
		t.Errorf("GetHotels mismatch: %v", err)
	}
}

func TestCreateTripFailuresPersistNothing(t *testing.T) {
	quota := errors.New("quota exceeded")
	tests := []struct {
		name       string
		model      *fakeModel
		wantStatus int
	}{
		{"Model error", &fakeModel{reply: func(CompletionRequest) (string, error) { return "", quota }}, http.StatusBadGateway},
		{"Malformed lodging", tripModel(samplePlan, "I'm sorry, I can't do that."), 0},
		{"Plan without days", tripModel(`{"itinerary": {}}`, sampleLodging), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memstore.New()
			seedTraveler(t, st)
			svc := NewTripService(st, tt.model, &fakeImages{}, testLogger)

			_, err := svc.CreateTrip(context.Background(), lisbonPrefs())
			if err == nil {
				t.Fatal("Expected pipeline error")
			}
			if tt.wantStatus != 0 && statusOf(t, err) != tt.wantStatus {
				t.Errorf("Expected status %d, got %v", tt.wantStatus, err)
			}
			var malformed *MalformedOutputError
			if tt.wantStatus == 0 && !errors.As(err, &malformed) {
				t.Errorf("Expected MalformedOutputError, got %v", err)
			}

			user, _ := st.GetUserByEmail(context.Background(), "asha@example.com")
			if len(user.Trips) != 0 {
				t.Errorf("Expected no trip stored, got %d", len(user.Trips))
			}
		})
	}
}

func TestCreateTripUnknownUser(t *testing.T) {
	model := tripModel(samplePlan, sampleLodging)
	svc := NewTripService(memstore.New(), model, &fakeImages{}, testLogger)

	_, err := svc.CreateTrip(context.Background(), lisbonPrefs())
	if !errors.Is(err, apierrors.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if len(model.Calls()) != 0 {
		t.Error("Expected no model calls for an unknown user")
	}
}

func TestTripSelection(t *testing.T) {
	st := memstore.New()
	seedTraveler(t, st)
	svc := NewTripService(st, tripModel(samplePlan, sampleLodging), &fakeImages{}, testLogger)
	ctx := context.Background()

	if _, err := svc.GetPlan(ctx, "asha@example.com", ""); !errors.Is(err, apierrors.ErrNotFound) {
		t.Errorf("Expected not found before any trip, got %v", err)
	}

	first, err := svc.CreateTrip(ctx, lisbonPrefs())
	if err != nil {
		t.Fatal(err)
	}
	prefs := lisbonPrefs()
	prefs.Destination = "Porto"
	second, err := svc.CreateTrip(ctx, prefs)
	if err != nil {
		t.Fatal(err)
	}

	active, err := svc.Trip(ctx, "asha@example.com", "")
	if err != nil || active.ID != second.ID {
		t.Errorf("Expected newest trip active, got %v %v", active, err)
	}
	older, err := svc.Trip(ctx, "Asha@Example.com", first.ID)
	if err != nil || older.Destination != "Lisbon" {
		t.Errorf("Expected explicit trip id to select first trip, got %v %v", older, err)
	}
	if _, err := svc.Trip(ctx, "asha@example.com", "missing"); !errors.Is(err, apierrors.ErrNotFound) {
		t.Errorf("Expected not found for unknown trip id, got %v", err)
	}

	summaries, err := svc.ListTrips(ctx, "asha@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 || summaries[0].Active || !summaries[1].Active {
		t.Errorf("Unexpected summaries %+v", summaries)
	}
}

func TestConcurrentTripsAllPersist(t *testing.T) {
	st := memstore.New()
	seedTraveler(t, st)
	svc := NewTripService(st, tripModel(samplePlan, sampleLodging), &fakeImages{}, testLogger)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prefs := lisbonPrefs()
			prefs.Destination = fmt.Sprintf("City %d", i)
			if _, err := svc.CreateTrip(context.Background(), prefs); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("CreateTrip failed: %v", err)
	}

	trips, _ := svc.ListTrips(context.Background(), "asha@example.com")
	if len(trips) != n {
		t.Errorf("Expected %d trips, got %d", n, len(trips))
	}
}
