package services

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/ringsaturn/tzf"
	"go.uber.org/zap"

	"wanderwise/models"
	apierrors "wanderwise/utils/errors"
)

const (
	dayStartHour  = 9
	visitDuration = 2 * time.Hour
)

// TimezoneFinder maps a coordinate to an IANA zone name.
type TimezoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// CalendarService renders a trip plan as an iCalendar feed. Each place
// becomes a timed event on its day, laid out from 09:00 local time at the
// destination.
type CalendarService struct {
	zones  TimezoneFinder
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService loads the timezone polygons; call it once at startup.
func NewCalendarService(logger *zap.Logger) (*CalendarService, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone data: %w", err)
	}
	return &CalendarService{zones: finder, logger: logger, now: time.Now}, nil
}

func (s *CalendarService) Itinerary(trip *models.Trip) (string, error) {
	if trip.Plan == nil {
		return "", apierrors.NewAPIError(apierrors.ErrNotFound.Code, "Trip has no plan", http.StatusNotFound)
	}
	start, err := time.Parse(time.DateOnly, trip.StartDate)
	if err != nil {
		return "", apierrors.Validation("Trip start date is not a valid date")
	}
	loc := s.location(trip.Plan)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//WanderWise//Itinerary//EN")
	cal.SetXWRCalName(fmt.Sprintf("Trip to %s", trip.Destination))
	cal.SetXWRTimezone(loc.String())

	stamp := s.now().UTC()
	for i, day := range trip.Plan.Days() {
		date := start.AddDate(0, 0, i)
		at := time.Date(date.Year(), date.Month(), date.Day(), dayStartHour, 0, 0, 0, loc)
		for j, place := range trip.Plan.Itinerary[day] {
			event := cal.AddEvent(fmt.Sprintf("%s-%s-%d@wanderwise", trip.ID, day, j))
			event.SetDtStampTime(stamp)
			event.SetStartAt(at)
			event.SetEndAt(at.Add(visitDuration))
			event.SetSummary(place.Name)
			event.SetDescription(placeDescription(place))
			event.SetLocation(place.Name)
			if !place.GeoCoordinates.IsZero() {
				event.SetProperty(ics.ComponentPropertyGeo, fmt.Sprintf("%.6f;%.6f",
					float64(place.GeoCoordinates.Latitude), float64(place.GeoCoordinates.Longitude)))
			}
			at = at.Add(visitDuration)
		}
	}
	return cal.Serialize(), nil
}

// location picks the destination zone from the first place with coordinates.
func (s *CalendarService) location(plan *models.Plan) *time.Location {
	for _, day := range plan.Days() {
		for _, place := range plan.Itinerary[day] {
			c := place.GeoCoordinates
			if c.IsZero() {
				continue
			}
			name := s.zones.GetTimezoneName(float64(c.Longitude), float64(c.Latitude))
			if name == "" {
				continue
			}
			loc, err := time.LoadLocation(name)
			if err != nil {
				s.logger.Warn("unknown timezone", zap.String("zone", name), zap.Error(err))
				continue
			}
			return loc
		}
	}
	return time.UTC
}

func placeDescription(p models.Place) string {
	var b strings.Builder
	b.WriteString(p.Details)
	if p.TicketPricing != "" {
		fmt.Fprintf(&b, "\nTickets: %s", p.TicketPricing)
	}
	if p.TravelTime != "" {
		fmt.Fprintf(&b, "\nTravel time: %s", p.TravelTime)
	}
	return b.String()
}
