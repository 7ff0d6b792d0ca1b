package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"wanderwise/middleware"
	"wanderwise/models"
	"wanderwise/services"
	"wanderwise/utils/errors"
)

const pipelineFailureMessage = "Failed to retrieve or save data"

type TripHandler struct {
	tripService     *services.TripService
	weatherService  *services.WeatherService
	calendarService *services.CalendarService
}

func NewTripHandler(trips *services.TripService, weather *services.WeatherService, calendar *services.CalendarService) *TripHandler {
	return &TripHandler{tripService: trips, weatherService: weather, calendarService: calendar}
}

// CreateTrip handles POST /details.
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Data models.Preferences `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, r, errors.ErrInvalidInput)
		return
	}
	if err := middleware.RequireEmail(r, input.Data.Email); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	trip, err := h.tripService.CreateTrip(r.Context(), input.Data)
	if err != nil {
		middleware.WriteError(w, r, collapse(err, pipelineFailureMessage))
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{"message": "Data entered", "tripData": trip})
}

func (h *TripHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	email, tripID, ok := tripQuery(w, r)
	if !ok {
		return
	}
	plan, err := h.tripService.GetPlan(r.Context(), email, tripID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"data": plan})
}

func (h *TripHandler) GetHotels(w http.ResponseWriter, r *http.Request) {
	email, tripID, ok := tripQuery(w, r)
	if !ok {
		return
	}
	hotels, err := h.tripService.GetHotels(r.Context(), email, tripID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"data": hotels})
}

func (h *TripHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	email, tripID, ok := tripQuery(w, r)
	if !ok {
		return
	}
	trip, err := h.tripService.Trip(r.Context(), email, tripID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	weather, err := h.weatherService.ForTrip(r.Context(), trip)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"data": weather})
}

func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	email, _, ok := tripQuery(w, r)
	if !ok {
		return
	}
	trips, err := h.tripService.ListTrips(r.Context(), email)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"data": trips})
}

// Calendar handles GET /itinerary.ics.
func (h *TripHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	email, tripID, ok := tripQuery(w, r)
	if !ok {
		return
	}
	trip, err := h.tripService.Trip(r.Context(), email, tripID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	feed, err := h.calendarService.Itinerary(trip)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trip-%s.ics"`, trip.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(feed))
}

// tripQuery reads ?email=&tripId= and checks the email against the token.
// It writes the error response itself when it returns false.
func tripQuery(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		middleware.WriteError(w, r, errors.Validation("Email is required"))
		return "", "", false
	}
	if err := middleware.RequireEmail(r, email); err != nil {
		middleware.WriteError(w, r, err)
		return "", "", false
	}
	return email, r.URL.Query().Get("tripId"), true
}

// collapse keeps client errors as they are and folds every server-side
// failure into one generic 500 carrying the cause in Details.
func collapse(err error, message string) error {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		return apiErr
	}
	return errors.NewAPIError(errors.ErrInternal.Code, message, http.StatusInternalServerError, err.Error())
}
