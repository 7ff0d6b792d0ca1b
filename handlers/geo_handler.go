package handlers

import (
	"net/http"

	"wanderwise/middleware"
	"wanderwise/services"
	"wanderwise/utils/errors"
)

type GeoHandler struct {
	geoService *services.GeoService
}

func NewGeoHandler(geoService *services.GeoService) *GeoHandler {
	return &GeoHandler{geoService: geoService}
}

// Geocode handles GET /geocode?address=.
func (h *GeoHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	point, err := h.geoService.Geocode(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"data": point})
}

// Route handles GET /route?source=&destination=.
func (h *GeoHandler) Route(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	destination := r.URL.Query().Get("destination")
	if source == "" || destination == "" {
		middleware.WriteError(w, r, errors.Validation("Source and destination are required"))
		return
	}
	route, err := h.geoService.Route(r.Context(), source, destination)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"data": route})
}
