// Package places is a client for the Google Places API v1, covering place
// details, photo media, and nearby search.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"tourgen/pkg/config"
	"tourgen/pkg/model"
	"tourgen/pkg/request"
)

var detailsFieldMask = strings.Join([]string{
	"id",
	"displayName",
	"formattedAddress",
	"location",
	"types",
	"primaryType",
	"editorialSummary",
	"photos",
}, ",")

// Nearby search responses nest places, so fields carry the places. prefix.
var nearbyFieldMask = strings.Join([]string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.location",
	"places.types",
	"places.primaryType",
	"places.editorialSummary",
	"places.photos",
}, ",")

// PhotoRef identifies one downloadable photo of a place.
type PhotoRef struct {
	Name        string
	Width       int
	Height      int
	Attribution map[string]string
}

// Client wraps the Places API over the shared request client.
type Client struct {
	client  *request.Client
	key     string
	baseURL string
}

// New creates a Places client.
func New(rc *request.Client, cfg config.PlacesConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://places.googleapis.com/v1"
	}
	return &Client{client: rc, key: cfg.Key, baseURL: baseURL}
}

type wirePlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Types            []string `json:"types"`
	PrimaryType      string   `json:"primaryType"`
	EditorialSummary struct {
		Text string `json:"text"`
	} `json:"editorialSummary"`
	Photos []struct {
		Name               string `json:"name"`
		WidthPx            int    `json:"widthPx"`
		HeightPx           int    `json:"heightPx"`
		AuthorAttributions []struct {
			DisplayName string `json:"displayName"`
			URI         string `json:"uri"`
		} `json:"authorAttributions"`
	} `json:"photos"`
}

func (w *wirePlace) toPlaceInfo(placeID string) *model.PlaceInfo {
	id := w.ID
	if id == "" {
		id = placeID
	}
	return &model.PlaceInfo{
		PlaceID:          id,
		Name:             w.DisplayName.Text,
		Address:          w.FormattedAddress,
		EditorialSummary: w.EditorialSummary.Text,
		PrimaryType:      w.PrimaryType,
		Types:            w.Types,
		Location:         orb.Point{w.Location.Longitude, w.Location.Latitude},
		RetrievedAt:      time.Now().UTC(),
	}
}

func (w *wirePlace) photoRefs() []PhotoRef {
	refs := make([]PhotoRef, 0, len(w.Photos))
	for _, p := range w.Photos {
		ref := PhotoRef{Name: p.Name, Width: p.WidthPx, Height: p.HeightPx}
		if len(p.AuthorAttributions) > 0 {
			ref.Attribution = map[string]string{
				"author": p.AuthorAttributions[0].DisplayName,
				"uri":    p.AuthorAttributions[0].URI,
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

// GetPlaceDetails fetches the place snapshot and its photo references.
func (c *Client) GetPlaceDetails(ctx context.Context, placeID string) (*model.PlaceInfo, []PhotoRef, error) {
	u := fmt.Sprintf("%s/places/%s", c.baseURL, placeID)
	headers := map[string]string{
		"X-Goog-Api-Key":   c.key,
		"X-Goog-FieldMask": detailsFieldMask,
	}

	body, err := c.client.GetWithHeaders(ctx, u, headers, "place:"+placeID)
	if err != nil {
		return nil, nil, fmt.Errorf("place details for %s: %w", placeID, err)
	}

	var w wirePlace
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, nil, fmt.Errorf("failed to parse place details for %s: %w", placeID, err)
	}
	return w.toPlaceInfo(placeID), w.photoRefs(), nil
}

// GetPhoto downloads the photo media for a reference, scaled to fit the
// given bounding box. Photo bytes are never cached.
func (c *Client) GetPhoto(ctx context.Context, ref PhotoRef, maxWidthPx, maxHeightPx int) ([]byte, error) {
	u := fmt.Sprintf("%s/%s/media?maxWidthPx=%d&maxHeightPx=%d", c.baseURL, ref.Name, maxWidthPx, maxHeightPx)
	headers := map[string]string{
		"X-Goog-Api-Key": c.key,
		"Accept":         "image/*",
	}
	body, err := c.client.GetWithHeaders(ctx, u, headers, "")
	if err != nil {
		return nil, fmt.Errorf("photo media %s: %w", ref.Name, err)
	}
	return body, nil
}

// PlaceTypesForTour maps a tour type to the place types worth touring for
// that angle.
func PlaceTypesForTour(tourType model.TourType) []string {
	switch tourType {
	case model.TourTypeHistory:
		return []string{"historical_place", "monument", "historical_landmark", "cultural_landmark"}
	case model.TourTypeCulture:
		return []string{"art_gallery", "museum", "performing_arts_theater", "cultural_center", "tourist_attraction"}
	case model.TourTypeArt:
		return []string{"art_gallery", "art_studio", "sculpture"}
	case model.TourTypeNature:
		return []string{"park", "national_park", "state_park", "botanical_garden", "garden", "wildlife_park", "zoo", "aquarium"}
	case model.TourTypeArchitecture:
		return []string{"cultural_landmark", "monument", "church", "hindu_temple", "mosque", "synagogue", "stadium", "opera_house"}
	}
	return []string{"tourist_attraction"}
}

type nearbyRequest struct {
	LocationRestriction struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
	IncludedTypes  []string `json:"includedTypes"`
	LanguageCode   string   `json:"languageCode"`
	MaxResultCount int      `json:"maxResultCount"`
}

// SearchNearby finds tourable places around center, filtered to the place
// types matching the tour angle.
func (c *Client) SearchNearby(ctx context.Context, center orb.Point, radiusMeters float64, tourType model.TourType, maxResults int) ([]model.PlaceInfo, error) {
	if maxResults < 1 {
		maxResults = 20
	}

	var payload nearbyRequest
	payload.LocationRestriction.Circle.Center.Latitude = center.Lat()
	payload.LocationRestriction.Circle.Center.Longitude = center.Lon()
	payload.LocationRestriction.Circle.Radius = radiusMeters
	payload.IncludedTypes = PlaceTypesForTour(tourType)
	payload.LanguageCode = "en"
	payload.MaxResultCount = maxResults

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode nearby search: %w", err)
	}

	u := c.baseURL + "/places:searchNearby"
	headers := map[string]string{
		"Content-Type":     "application/json",
		"X-Goog-Api-Key":   c.key,
		"X-Goog-FieldMask": nearbyFieldMask,
	}
	body, err := c.client.PostWithHeaders(ctx, u, reqBody, headers)
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}

	var resp struct {
		Places []wirePlace `json:"places"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse nearby search: %w", err)
	}

	places := make([]model.PlaceInfo, 0, len(resp.Places))
	for _, w := range resp.Places {
		places = append(places, *w.toPlaceInfo(""))
	}
	return places, nil
}
