// Package preview gates anonymous access to pre-generated demo content.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"tourgen/pkg/config"
	"tourgen/pkg/model"
	"tourgen/pkg/storage"
)

// Manifest is the eligibility list stored per city and tour type.
type Manifest struct {
	Places []ManifestPlace `json:"places"`
}

type ManifestPlace struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name,omitempty"`
}

// Gate answers whether a place is part of the preview catalog. Manifests are
// loaded lazily from object storage and cached for the process lifetime.
type Gate struct {
	store  storage.ObjectStore
	prefix string
	cities []string

	mu   sync.Mutex
	sets map[string]map[string]bool // city+tourType -> eligible place ids
}

// New creates a gate over the configured preview cities.
func New(store storage.ObjectStore, cfg config.PreviewConfig) *Gate {
	return &Gate{
		store:  store,
		prefix: cfg.ManifestPrefix,
		cities: cfg.Cities,
		sets:   make(map[string]map[string]bool),
	}
}

// Eligible reports whether the place appears in any city's manifest for the
// given tour type.
func (g *Gate) Eligible(ctx context.Context, placeID string, tourType model.TourType) (bool, error) {
	for _, city := range g.cities {
		set, err := g.citySet(ctx, city, tourType)
		if err != nil {
			return false, err
		}
		if set[placeID] {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gate) citySet(ctx context.Context, city string, tourType model.TourType) (map[string]bool, error) {
	cacheKey := city + "/" + string(tourType)

	g.mu.Lock()
	if set, ok := g.sets[cacheKey]; ok {
		g.mu.Unlock()
		return set, nil
	}
	g.mu.Unlock()

	set, err := g.loadManifest(ctx, city, tourType)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.sets[cacheKey] = set
	g.mu.Unlock()
	return set, nil
}

func (g *Gate) loadManifest(ctx context.Context, city string, tourType model.TourType) (map[string]bool, error) {
	key := storage.PreviewManifestKey(g.prefix, city, tourType)
	rc, err := g.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		// Absent manifest means nothing is previewable in that city.
		slog.Debug("Preview manifest missing", "city", city, "tour_type", tourType)
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preview manifest %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read preview manifest %s: %w", key, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse preview manifest %s: %w", key, err)
	}

	set := make(map[string]bool, len(m.Places))
	for _, p := range m.Places {
		set[p.PlaceID] = true
	}
	return set, nil
}
