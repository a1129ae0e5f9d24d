// Package api exposes the query surface over HTTP: tour resolution,
// preview lookups, on-demand generation, and operational endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"tourgen/pkg/version"
)

// NewServer creates and configures the HTTP server.
func NewServer(addr string, tours *TourHandler, nearby *PlacesHandler, stats *StatsHandler) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.Handle("GET /api/stats", stats)

	mux.HandleFunc("POST /api/tours", tours.HandleResolve)
	mux.HandleFunc("POST /api/tours/on-demand", tours.HandleOnDemand)
	mux.HandleFunc("GET /api/previews/{placeID}", tours.HandlePreview)
	mux.HandleFunc("GET /api/places", nearby.HandleNearby)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
