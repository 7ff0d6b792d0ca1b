package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wanderwise/models"
	"wanderwise/store"
	apierrors "wanderwise/utils/errors"
)

const (
	hotelImageQuery      = "hotel exterior"
	restaurantImageQuery = "restaurant and cafes"

	FallbackHotelImage      = "fallback_hotel_image.jpg"
	FallbackRestaurantImage = "fallback_restaurant_image.jpg"
)

// ImageFinder is the image search used to decorate a trip.
type ImageFinder interface {
	FindOne(ctx context.Context, query string) ImageLookup
	FindMany(ctx context.Context, query string, limit int) ([]string, LookupStatus)
}

// TripService assembles trips from preferences and serves reads of stored trips.
type TripService struct {
	store     store.Store
	itinerary *ItineraryGenerator
	lodging   *LodgingGenerator
	images    ImageFinder
	logger    *zap.Logger
	now       func() time.Time
}

func NewTripService(s store.Store, model LanguageModel, images ImageFinder, logger *zap.Logger) *TripService {
	return &TripService{
		store:     s,
		itinerary: NewItineraryGenerator(model),
		lodging:   NewLodgingGenerator(model),
		images:    images,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateTrip runs the full pipeline for prefs and stores the result as the
// requester's active trip. Nothing is stored if any step fails.
func (s *TripService) CreateTrip(ctx context.Context, prefs models.Preferences) (*models.Trip, error) {
	ctx, span := tracer.Start(ctx, "TripService.CreateTrip")
	defer span.End()

	prefs.Email = normalizeEmail(prefs.Email)
	if prefs.Email == "" || prefs.Destination == "" {
		return nil, apierrors.Validation("Email and destination are required")
	}
	user, err := s.store.GetUserByEmail(ctx, prefs.Email)
	if err != nil {
		return nil, lookupError(err)
	}

	plan, lodging, err := s.generate(ctx, prefs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, err
	}

	s.decoratePlaces(ctx, plan)
	s.decorateLodging(ctx, lodging)

	trip := &models.Trip{
		ID:          uuid.New().String(),
		Destination: prefs.Destination,
		StartDate:   prefs.StartDate,
		EndDate:     prefs.EndDate,
		WithWhom:    prefs.WithWhom,
		Pets:        prefs.Pets,
		Goals:       prefs.Goals,
		Plan:        plan,
		Hotels:      lodging,
		ChatHistory: []models.Turn{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.AppendTrip(ctx, user.ID, trip); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, apierrors.Persistence(err)
	}

	span.SetAttributes(attribute.String("trip.id", trip.ID), attribute.Int("plan.places", plan.PlaceCount()))
	s.logger.Info("trip created",
		zap.String("user_id", user.ID),
		zap.String("trip_id", trip.ID),
		zap.String("destination", trip.Destination),
	)
	return trip, nil
}

// generate runs both generators concurrently. The first failure cancels the
// other call.
func (s *TripService) generate(ctx context.Context, prefs models.Preferences) (*models.Plan, *models.LodgingSet, error) {
	var (
		plan    *models.Plan
		lodging *models.LodgingSet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.itinerary.Generate(gctx, prefs)
		if err != nil {
			return fmt.Errorf("itinerary: %w", err)
		}
		plan = p
		return nil
	})
	g.Go(func() error {
		l, err := s.lodging.Generate(gctx, prefs.Destination, prefs.StartDate, prefs.EndDate)
		if err != nil {
			return fmt.Errorf("lodging: %w", err)
		}
		lodging = l
		return nil
	})
	if err := g.Wait(); err != nil {
		var malformed *MalformedOutputError
		if !errors.As(err, &malformed) {
			err = apierrors.Upstream(err, "language model")
		}
		return nil, nil, err
	}
	return plan, lodging, nil
}

// decoratePlaces looks up one image per place, day by day in order. A place
// keeps the URL the model gave it unless the search finds a match.
func (s *TripService) decoratePlaces(ctx context.Context, plan *models.Plan) {
	ctx, span := tracer.Start(ctx, "TripService.decoratePlaces")
	defer span.End()

	for _, day := range plan.Days() {
		places := plan.Itinerary[day]
		for i := range places {
			lookup := s.images.FindOne(ctx, places[i].Name)
			if lookup.Status == LookupFound {
				places[i].ImageURL = lookup.URL
			}
		}
	}
}

// decorateLodging fetches the hotel and restaurant image groups concurrently
// and assigns them by position.
func (s *TripService) decorateLodging(ctx context.Context, lodging *models.LodgingSet) {
	ctx, span := tracer.Start(ctx, "TripService.decorateLodging")
	defer span.End()

	var hotelImages, restaurantImages []string
	var g errgroup.Group
	g.Go(func() error {
		hotelImages, _ = s.images.FindMany(ctx, hotelImageQuery, DefaultGroupSize)
		return nil
	})
	g.Go(func() error {
		restaurantImages, _ = s.images.FindMany(ctx, restaurantImageQuery, DefaultGroupSize)
		return nil
	})
	_ = g.Wait()

	for i := range lodging.Hotels {
		lodging.Hotels[i].ImageURL = imageAt(hotelImages, i, FallbackHotelImage)
	}
	for i := range lodging.Restaurants {
		lodging.Restaurants[i].ImageURL = imageAt(restaurantImages, i, FallbackRestaurantImage)
	}
}

func imageAt(urls []string, i int, fallback string) string {
	if i < len(urls) && urls[i] != "" {
		return urls[i]
	}
	return fallback
}

// Trip returns the trip named by tripID, or the user's active trip when
// tripID is empty.
func (s *TripService) Trip(ctx context.Context, email, tripID string) (*models.Trip, error) {
	_, trip, err := resolveTrip(ctx, s.store, email, tripID)
	return trip, err
}

func (s *TripService) GetPlan(ctx context.Context, email, tripID string) (*models.Plan, error) {
	trip, err := s.Trip(ctx, email, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Plan == nil {
		return nil, apierrors.NewAPIError(apierrors.ErrNotFound.Code, "Trip has no plan", http.StatusNotFound)
	}
	return trip.Plan, nil
}

func (s *TripService) GetHotels(ctx context.Context, email, tripID string) (*models.LodgingSet, error) {
	trip, err := s.Trip(ctx, email, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Hotels == nil {
		return nil, apierrors.NewAPIError(apierrors.ErrNotFound.Code, "Trip has no hotels", http.StatusNotFound)
	}
	return trip.Hotels, nil
}

// ListTrips returns summaries of every trip the user has, oldest first.
func (s *TripService) ListTrips(ctx context.Context, email string) ([]models.TripSummary, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, lookupError(err)
	}
	active := ""
	if t := user.ActiveTrip(); t != nil {
		active = t.ID
	}
	return lo.Map(user.Trips, func(t models.Trip, _ int) models.TripSummary {
		return t.Summary(active)
	}), nil
}

// resolveTrip loads the user for email and picks the requested trip.
func resolveTrip(ctx context.Context, s store.Store, email, tripID string) (*models.User, *models.Trip, error) {
	user, err := s.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, lookupError(err)
	}
	var trip *models.Trip
	if tripID != "" {
		trip = user.FindTrip(tripID)
	} else {
		trip = user.ActiveTrip()
	}
	if trip == nil {
		return nil, nil, apierrors.NewAPIError(apierrors.ErrNotFound.Code, "Trip not found", http.StatusNotFound)
	}
	return user, trip, nil
}

func lookupError(err error) error {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return apierrors.NewAPIError(apierrors.ErrNotFound.Code, "User not found", http.StatusNotFound)
	case errors.Is(err, store.ErrTripNotFound):
		return apierrors.NewAPIError(apierrors.ErrNotFound.Code, "Trip not found", http.StatusNotFound)
	default:
		return apierrors.Wrap(err, apierrors.ErrInternal.Code, "Failed to load user", http.StatusInternalServerError)
	}
}
