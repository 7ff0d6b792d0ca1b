package models

import (
	"reflect"
	"testing"
)

func TestPlanDaysNaturalOrder(t *testing.T) {
	plan := &Plan{Itinerary: map[string][]Place{
		"day10": {{Name: "j"}},
		"day2":  {{Name: "b"}},
		"day1":  {{Name: "a"}, {Name: "a2"}},
		"extra": {{Name: "x"}},
	}}

	got := plan.Days()
	want := []string{"day1", "day2", "day10", "extra"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Days() = %v, want %v", got, want)
	}
	if plan.PlaceCount() != 5 {
		t.Errorf("PlaceCount() = %d, want 5", plan.PlaceCount())
	}
}

func TestUserActiveTrip(t *testing.T) {
	user := &User{Trips: []Trip{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	if got := user.ActiveTrip(); got == nil || got.ID != "c" {
		t.Errorf("Expected last trip without pointer, got %+v", got)
	}

	user.ActiveTripID = "b"
	if got := user.ActiveTrip(); got == nil || got.ID != "b" {
		t.Errorf("Expected trip b, got %+v", got)
	}

	user.ActiveTripID = "missing"
	if got := user.ActiveTrip(); got == nil || got.ID != "c" {
		t.Errorf("Expected fallback to last trip, got %+v", got)
	}

	empty := &User{}
	if empty.ActiveTrip() != nil {
		t.Error("Expected nil active trip for user without trips")
	}
}
