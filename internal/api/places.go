package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/paulmach/orb"

	"tourgen/pkg/ingress"
	"tourgen/pkg/model"
)

const (
	defaultSearchRadius = 1500.0
	defaultMaxResults   = 20
)

// NearbySearcher finds tourable places around a coordinate.
type NearbySearcher interface {
	SearchNearby(ctx context.Context, center orb.Point, radiusMeters float64, tourType model.TourType, maxResults int) ([]model.PlaceInfo, error)
}

// PlacesHandler serves nearby-place lookups used to seed tour requests.
type PlacesHandler struct {
	searcher NearbySearcher
}

// NewPlacesHandler creates the handler.
func NewPlacesHandler(s NearbySearcher) *PlacesHandler {
	return &PlacesHandler{searcher: s}
}

// HandleNearby serves GET /api/places?lat=..&lng=..&tour_type=..
// Optional: radius (meters), max_results.
func (h *PlacesHandler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, ingress.NewAPIError(http.StatusBadRequest, "lat and lng are required"))
		return
	}
	tourType, err := model.ParseTourType(q.Get("tour_type"))
	if err != nil {
		writeError(w, ingress.NewAPIError(http.StatusBadRequest, err.Error()))
		return
	}

	radius := defaultSearchRadius
	if v := q.Get("radius"); v != "" {
		if radius, err = strconv.ParseFloat(v, 64); err != nil || radius <= 0 {
			writeError(w, ingress.NewAPIError(http.StatusBadRequest, "invalid radius"))
			return
		}
	}
	maxResults := defaultMaxResults
	if v := q.Get("max_results"); v != "" {
		if maxResults, err = strconv.Atoi(v); err != nil || maxResults < 1 {
			writeError(w, ingress.NewAPIError(http.StatusBadRequest, "invalid max_results"))
			return
		}
	}

	found, err := h.searcher.SearchNearby(r.Context(), orb.Point{lng, lat}, radius, tourType, maxResults)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": found})
}
