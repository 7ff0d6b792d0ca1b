package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"wanderwise/models"
)

var tracer trace.Tracer = otel.Tracer("wanderwise/services")

// titleCase builds a fresh Caser per call; Casers are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

const itineraryExampleRequest = `Generate a Travel Plan for Location: Barcelona, from 2025-05-01 to 2025-05-03 for Couple with No Pets focus on Culture, Food
Also, suggest an itinerary with:
  - Place Name
  - Place Details(bit elaborate)
  - Place Image URL
  - Geo Coordinates(just numbers no degree or any symbol)
  - Ticket Pricing
  - Travel Time between each location from start date to end date (with daily plans and best times to visit).
Format the response in JSON format. Do NOT include any explanatory text or other content outside the JSON object itself.`

const itineraryExampleReply = `{
  "tripDetails": {
    "destination": "Barcelona",
    "startDate": "2025-05-01",
    "endDate": "2025-05-03",
    "withWhom": "Couple",
    "pets": "No Pets",
    "goals": ["Culture", "Food"]
  },
  "itinerary": {
    "day1": [
      {
        "placeName": "Sagrada Familia",
        "placeDetails": "Gaudi's unfinished basilica, famous for its towering spires and light-filled nave. Book a morning slot to avoid queues.",
        "placeImageUrl": "https://example.com/sagrada_familia.jpg",
        "geoCoordinates": {"latitude": 41.4036, "longitude": 2.1744},
        "ticketPricing": "EUR 26",
        "travelTime": "Start of day"
      },
      {
        "placeName": "Park Guell",
        "placeDetails": "Hillside park with mosaic terraces and views over the city. Best in the late afternoon light.",
        "placeImageUrl": "https://example.com/park_guell.jpg",
        "geoCoordinates": {"latitude": 41.4145, "longitude": 2.1527},
        "ticketPricing": "EUR 10",
        "travelTime": "20 minutes by metro"
      }
    ],
    "day2": [
      {
        "placeName": "La Boqueria",
        "placeDetails": "Historic covered market off La Rambla with tapas counters and fresh produce. Go early for breakfast.",
        "placeImageUrl": "https://example.com/la_boqueria.jpg",
        "geoCoordinates": {"latitude": 41.3817, "longitude": 2.1716},
        "ticketPricing": "Free",
        "travelTime": "Start of day"
      }
    ]
  },
  "bestTimesToVisit": "Late spring and early autumn"
}`

// ItineraryGenerator turns trip preferences into a day-by-day Plan.
type ItineraryGenerator struct {
	model LanguageModel
}

func NewItineraryGenerator(model LanguageModel) *ItineraryGenerator {
	return &ItineraryGenerator{model: model}
}

// Prompt builds the request text for prefs.
func (g *ItineraryGenerator) Prompt(prefs models.Preferences) string {
	pets := "No Pets"
	if prefs.Pets {
		pets = "Pets"
	}
	return fmt.Sprintf(`Generate a Travel Plan for Location: %s, from %s to %s for %s with %s focus on %s
Also, suggest an itinerary with:
  - Place Name
  - Place Details(bit elaborate)
  - Place Image URL
  - Geo Coordinates(just numbers no degree or any symbol)
  - Ticket Pricing
  - Travel Time between each location from start date to end date (with daily plans and best times to visit).
Format the response in JSON format. Do NOT include any explanatory text or other content outside the JSON object itself.`,
		titleCase(strings.TrimSpace(prefs.Destination)), prefs.StartDate, prefs.EndDate,
		prefs.WithWhom, pets, strings.Join(prefs.Goals, ", "))
}

// Generate asks the model for a plan. Model failures are returned as is;
// replies that do not parse come back as *MalformedOutputError.
func (g *ItineraryGenerator) Generate(ctx context.Context, prefs models.Preferences) (*models.Plan, error) {
	ctx, span := tracer.Start(ctx, "ItineraryGenerator.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("trip.destination", prefs.Destination))

	raw, err := g.model.Complete(ctx, CompletionRequest{
		History: []Message{
			{Role: ModelRoleUser, Text: itineraryExampleRequest},
			{Role: ModelRoleModel, Text: itineraryExampleReply},
		},
		Prompt:      g.Prompt(prefs),
		JSON:        true,
		Temperature: 1,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return nil, err
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed itinerary")
		return nil, err
	}
	span.SetAttributes(attribute.Int("plan.days", len(plan.Itinerary)))
	return plan, nil
}

// ParsePlan decodes a model reply into a Plan with at least one day.
func ParsePlan(raw string) (*models.Plan, error) {
	var plan models.Plan
	if err := parseModelJSON("itinerary", raw, &plan); err != nil {
		return nil, err
	}
	if len(plan.Itinerary) == 0 {
		return nil, &MalformedOutputError{Kind: "itinerary", Raw: raw, Err: errors.New("itinerary has no days")}
	}
	return &plan, nil
}
