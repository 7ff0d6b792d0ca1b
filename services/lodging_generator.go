package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"wanderwise/models"
)

const lodgingExampleRequest = `Generate a list of 10 hotels and 10 restaurants separately in 2 objects for Barcelona from 2025-05-01 to 2025-05-03.
Provide:
  - hotelName
  - address
  - geoCoordinates
  - starRating
  - avgCost
  - distanceFromCityCenter
  - hotelImageURL
  - restaurantImageURL
Format the response in JSON format. Do NOT include any explanatory text outside the JSON object.`

const lodgingExampleReply = `{
  "hotels": [
    {
      "hotelName": "Hotel Majestic Barcelona",
      "address": "Passeig de Gracia, 68, 08007 Barcelona, Spain",
      "geoCoordinates": {"latitude": 41.3906, "longitude": 2.1689},
      "starRating": 5,
      "avgCost": 350,
      "distanceFromCityCenter": 0.5,
      "hotelImageURL": "https://example.com/hotel_majestic_barcelona.jpg"
    },
    {
      "hotelName": "H10 Metropolitan",
      "address": "Rambla de Catalunya, 7-9, 08007 Barcelona, Spain",
      "geoCoordinates": {"latitude": 41.3858, "longitude": 2.1702},
      "starRating": 4,
      "avgCost": 250,
      "distanceFromCityCenter": 0.7,
      "hotelImageURL": "https://example.com/h10_metropolitan.jpg"
    }
  ],
  "restaurants": [
    {
      "restaurantName": "Ciudad Condal",
      "address": "Rambla de Catalunya, 18, 08007 Barcelona, Spain",
      "geoCoordinates": {"latitude": 41.3852, "longitude": 2.1703},
      "avgCost": 35,
      "distanceFromCityCenter": 0.8,
      "restaurantImageURL": "https://example.com/ciudad_condal.jpg"
    },
    {
      "restaurantName": "El Xampanyet",
      "address": "Carrer de Montcada, 22, 08003 Barcelona, Spain",
      "geoCoordinates": {"latitude": 41.3845, "longitude": 2.1795},
      "avgCost": 20,
      "distanceFromCityCenter": 1.4,
      "restaurantImageURL": "https://example.com/el_xampanyet.jpg"
    }
  ]
}`

// LodgingGenerator asks the model for hotels and restaurants at a destination.
type LodgingGenerator struct {
	model LanguageModel
}

func NewLodgingGenerator(model LanguageModel) *LodgingGenerator {
	return &LodgingGenerator{model: model}
}

func (g *LodgingGenerator) Prompt(destination, startDate, endDate string) string {
	return fmt.Sprintf(`Generate a list of 10 hotels and 10 restaurants separately in 2 objects for %s from %s to %s.
Provide:
  - hotelName
  - address
  - geoCoordinates
  - starRating
  - avgCost
  - distanceFromCityCenter
  - hotelImageURL
  - restaurantImageURL
Format the response in JSON format. Do NOT include any explanatory text outside the JSON object. Do not change the structure of object as in history`,
		titleCase(strings.TrimSpace(destination)), startDate, endDate)
}

func (g *LodgingGenerator) Generate(ctx context.Context, destination, startDate, endDate string) (*models.LodgingSet, error) {
	ctx, span := tracer.Start(ctx, "LodgingGenerator.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("trip.destination", destination))

	raw, err := g.model.Complete(ctx, CompletionRequest{
		History: []Message{
			{Role: ModelRoleUser, Text: lodgingExampleRequest},
			{Role: ModelRoleModel, Text: lodgingExampleReply},
		},
		Prompt:      g.Prompt(destination, startDate, endDate),
		JSON:        true,
		Temperature: 1,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return nil, err
	}

	lodging, err := ParseLodging(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed lodging")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("lodging.hotels", len(lodging.Hotels)),
		attribute.Int("lodging.restaurants", len(lodging.Restaurants)),
	)
	return lodging, nil
}

// ParseLodging decodes a model reply into a LodgingSet.
func ParseLodging(raw string) (*models.LodgingSet, error) {
	var lodging models.LodgingSet
	if err := parseModelJSON("lodging", raw, &lodging); err != nil {
		return nil, err
	}
	return &lodging, nil
}
