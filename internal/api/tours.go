package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tourgen/pkg/ingress"
	"tourgen/pkg/model"
	"tourgen/pkg/pipeline"
)

// TourHandler serves tour resolution and on-demand generation.
type TourHandler struct {
	svc      *ingress.Service
	onDemand *pipeline.OnDemand
}

// NewTourHandler creates the handler.
func NewTourHandler(svc *ingress.Service, onDemand *pipeline.OnDemand) *TourHandler {
	return &TourHandler{svc: svc, onDemand: onDemand}
}

type resolveBody struct {
	PlaceID   string           `json:"place_id"`
	TourType  string           `json:"tour_type"`
	PlaceInfo *model.PlaceInfo `json:"place_info,omitempty"`
}

// HandleResolve serves POST /api/tours.
func (h *TourHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, ingress.NewAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	res, err := h.svc.Resolve(r.Context(), ingress.ResolveRequest{
		PlaceID:   body.PlaceID,
		TourType:  body.TourType,
		PlaceInfo: body.PlaceInfo,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if res.Ack != nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

// HandleOnDemand serves POST /api/tours/on-demand: synchronous single-shot
// generation under the temp storage prefix.
func (h *TourHandler) HandleOnDemand(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, ingress.NewAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}
	tourType, err := model.ParseTourType(body.TourType)
	if err != nil {
		writeError(w, ingress.NewAPIError(http.StatusBadRequest, err.Error()))
		return
	}
	if body.PlaceID == "" {
		writeError(w, ingress.NewAPIError(http.StatusBadRequest, "place_id is required"))
		return
	}

	tour, err := h.onDemand.Generate(r.Context(), body.PlaceID, tourType)
	if err != nil {
		slog.Error("On-demand generation failed", "place_id", body.PlaceID, "tour_type", tourType, "error", err)
		writeError(w, ingress.NewAPIError(http.StatusInternalServerError, "internal error"))
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

// HandlePreview serves GET /api/previews/{placeID}?tour_type=...
func (h *TourHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ResolvePreview(r.Context(), ingress.ResolveRequest{
		PlaceID:  r.PathValue("placeID"),
		TourType: r.URL.Query().Get("tour_type"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Tour)
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *ingress.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("Unclassified handler error", "error", err)
		apiErr = ingress.NewAPIError(http.StatusInternalServerError, "internal error")
	}
	writeJSON(w, apiErr.Code, apiErr)
}
