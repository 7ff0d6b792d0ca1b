package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Preferences is the bundle a client submits to plan a trip.
type Preferences struct {
	Email       string   `json:"email"`
	Destination string   `json:"destination"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	WithWhom    string   `json:"withWhom"`
	Pets        bool     `json:"pets"`
	Goals       []string `json:"goals"`
}

type Trip struct {
	ID          string      `json:"tripId" bson:"trip_id"`
	Destination string      `json:"destination" bson:"destination"`
	StartDate   string      `json:"startDate" bson:"start_date"`
	EndDate     string      `json:"endDate" bson:"end_date"`
	WithWhom    string      `json:"withWhom" bson:"with_whom"`
	Pets        bool        `json:"pets" bson:"pets"`
	Goals       []string    `json:"goals" bson:"goals"`
	Plan        *Plan       `json:"plan,omitempty" bson:"plan,omitempty"`
	Hotels      *LodgingSet `json:"hotels,omitempty" bson:"hotels,omitempty"`
	ChatHistory []Turn      `json:"chatHistory" bson:"chat_history"`
	CreatedAt   time.Time   `json:"createdAt" bson:"created_at"`
}

// TripSummary is the listing view of a trip.
type TripSummary struct {
	ID          string    `json:"tripId"`
	Destination string    `json:"destination"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Plan struct {
	TripDetails      TripDetails        `json:"tripDetails" bson:"trip_details"`
	Itinerary        map[string][]Place `json:"itinerary" bson:"itinerary"`
	BestTimesToVisit FlexString         `json:"bestTimesToVisit,omitempty" bson:"best_times_to_visit,omitempty"`
}

type TripDetails struct {
	Destination string     `json:"destination" bson:"destination"`
	StartDate   string     `json:"startDate" bson:"start_date"`
	EndDate     string     `json:"endDate" bson:"end_date"`
	WithWhom    string     `json:"withWhom" bson:"with_whom"`
	Pets        FlexString `json:"pets" bson:"pets"`
	Goals       FlexList   `json:"goals" bson:"goals"`
}

type Place struct {
	Name           string      `json:"placeName" bson:"place_name"`
	Details        string      `json:"placeDetails" bson:"place_details"`
	ImageURL       string      `json:"placeImageUrl" bson:"place_image_url"`
	GeoCoordinates Coordinates `json:"geoCoordinates" bson:"geo_coordinates"`
	TicketPricing  FlexString  `json:"ticketPricing" bson:"ticket_pricing"`
	TravelTime     FlexString  `json:"travelTime" bson:"travel_time"`
}

type Coordinates struct {
	Latitude  FlexFloat `json:"latitude" bson:"latitude"`
	Longitude FlexFloat `json:"longitude" bson:"longitude"`
}

// UnmarshalJSON accepts the object form, a "lat, lon" string or a
// [lat, lon] pair. Any other shape leaves the coordinates zero.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	*c = Coordinates{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '{':
		type plain Coordinates
		var p plain
		if err := json.Unmarshal(data, &p); err == nil {
			*c = Coordinates(p)
		}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if nums := numberPattern.FindAllString(s, 2); len(nums) == 2 {
			lat, _ := strconv.ParseFloat(nums[0], 64)
			lng, _ := strconv.ParseFloat(nums[1], 64)
			*c = Coordinates{Latitude: FlexFloat(lat), Longitude: FlexFloat(lng)}
		}
	case '[':
		var pair []FlexFloat
		if err := json.Unmarshal(data, &pair); err == nil && len(pair) == 2 {
			*c = Coordinates{Latitude: pair[0], Longitude: pair[1]}
		}
	}
	return nil
}

// IsZero reports whether no coordinates were given.
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

type LodgingSet struct {
	Hotels      []Hotel      `json:"hotels" bson:"hotels"`
	Restaurants []Restaurant `json:"restaurants" bson:"restaurants"`
}

type Hotel struct {
	Name                   string      `json:"hotelName" bson:"hotel_name"`
	Address                string      `json:"address" bson:"address"`
	GeoCoordinates         Coordinates `json:"geoCoordinates" bson:"geo_coordinates"`
	StarRating             FlexFloat   `json:"starRating" bson:"star_rating"`
	AvgCost                FlexFloat   `json:"avgCost" bson:"avg_cost"`
	DistanceFromCityCenter FlexFloat   `json:"distanceFromCityCenter" bson:"distance_from_city_center"`
	ImageURL               string      `json:"hotelImageURL" bson:"hotel_image_url"`
}

type Restaurant struct {
	Name                   string      `json:"restaurantName" bson:"restaurant_name"`
	Address                string      `json:"address" bson:"address"`
	GeoCoordinates         Coordinates `json:"geoCoordinates" bson:"geo_coordinates"`
	AvgCost                FlexFloat   `json:"avgCost" bson:"avg_cost"`
	DistanceFromCityCenter FlexFloat   `json:"distanceFromCityCenter" bson:"distance_from_city_center"`
	ImageURL               string      `json:"restaurantImageURL" bson:"restaurant_image_url"`
}

type Turn struct {
	Role      string    `json:"role" bson:"role"`
	Message   string    `json:"message" bson:"message"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Days returns the itinerary day labels in natural order, so "day2" sorts
// before "day10".
func (p *Plan) Days() []string {
	days := make([]string, 0, len(p.Itinerary))
	for day := range p.Itinerary {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		ni, iok := dayNumber(days[i])
		nj, jok := dayNumber(days[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		if iok != jok {
			return iok
		}
		return days[i] < days[j]
	})
	return days
}

func dayNumber(label string) (int, bool) {
	digits := strings.TrimLeftFunc(label, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(digits)
	return n, err == nil
}

// PlaceCount is the total number of places across all days.
func (p *Plan) PlaceCount() int {
	n := 0
	for _, places := range p.Itinerary {
		n += len(places)
	}
	return n
}

// Summary returns the listing view of t.
func (t *Trip) Summary(activeTripID string) TripSummary {
	return TripSummary{
		ID:          t.ID,
		Destination: t.Destination,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		Active:      t.ID == activeTripID,
		CreatedAt:   t.CreatedAt,
	}
}
