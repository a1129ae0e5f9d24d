package model

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// TourType selects the content angle of a generated tour. Angles are
// mutually exclusive: a history tour suppresses art/architecture/nature
// content and vice versa.
type TourType string

const (
	TourTypeHistory      TourType = "history"
	TourTypeCulture      TourType = "cultural"
	TourTypeArchitecture TourType = "architecture"
	TourTypeArt          TourType = "art"
	TourTypeNature       TourType = "nature"
)

// AllTourTypes returns every supported tour type in a stable order.
func AllTourTypes() []TourType {
	return []TourType{TourTypeHistory, TourTypeCulture, TourTypeArchitecture, TourTypeArt, TourTypeNature}
}

// ParseTourType validates a wire string and returns the typed value.
func ParseTourType(s string) (TourType, error) {
	t := TourType(s)
	for _, known := range AllTourTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tour type %q", s)
}

// PlaceInfo is the denormalized place snapshot captured at pipeline start.
// Later stages read it from the record instead of re-fetching.
type PlaceInfo struct {
	PlaceID          string    `json:"place_id"`
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	EditorialSummary string    `json:"editorial_summary"`
	PrimaryType      string    `json:"primary_type"`
	Types            []string  `json:"types"`
	Location         orb.Point `json:"location"` // [lon, lat]
	RetrievedAt      time.Time `json:"retrieved_at"`
}

// ModelInfo records provenance of a generated artifact.
type ModelInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Engine   string `json:"engine,omitempty"`
}

// Photo is a stored place photo artifact.
type Photo struct {
	PhotoID     string            `json:"photo_id"`
	PlaceID     string            `json:"place_id"`
	StorageURL  string            `json:"storage_url"`
	CDNURL      string            `json:"cdn_url"`
	Attribution map[string]string `json:"attribution,omitempty"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	RetrievedAt time.Time         `json:"retrieved_at"`
}

// Script is a stored narration script artifact.
type Script struct {
	ScriptID    string    `json:"script_id"`
	PlaceID     string    `json:"place_id"`
	PlaceName   string    `json:"place_name"`
	TourType    TourType  `json:"tour_type"`
	ModelInfo   ModelInfo `json:"model_info"`
	StorageURL  string    `json:"storage_url"`
	CDNURL      string    `json:"cdn_url"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Audio is a stored narrated-audio artifact.
type Audio struct {
	PlaceID     string    `json:"place_id"`
	ScriptID    string    `json:"script_id"`
	ModelInfo   ModelInfo `json:"model_info"`
	StorageURL  string    `json:"storage_url"`
	CDNURL      string    `json:"cdn_url"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Tour is the assembled multimedia package returned to callers.
type Tour struct {
	PlaceID   string    `json:"place_id"`
	TourType  TourType  `json:"tour_type"`
	PlaceInfo PlaceInfo `json:"place_info"`
	Photos    []Photo   `json:"photos"`
	Script    *Script   `json:"script"`
	Audio     *Audio    `json:"audio"`
}

// GenerationStatus is the pipeline progress marker for a record.
type GenerationStatus string

const (
	StatusNotStarted GenerationStatus = "not_started"
	StatusInProgress GenerationStatus = "in_progress"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

// GenerationRecord is one row of the generation state table, keyed by
// (place_id, tour_type). Each stage populates its artifact field and the
// terminal stage flips Status to completed.
type GenerationRecord struct {
	PlaceID   string           `json:"place_id"`
	TourType  TourType         `json:"tour_type"`
	PlaceInfo PlaceInfo        `json:"place_info"`
	Status    GenerationStatus `json:"status"`
	Photos    []Photo          `json:"photos"`
	Script    *Script          `json:"script"`
	Audio     *Audio           `json:"audio"`
	CreatedAt time.Time        `json:"created_at"`

	// Version is the optimistic concurrency token. It is bumped on every
	// store write; conditional updates compare against it so concurrent
	// duplicate deliveries cannot both win a stage transition.
	Version int64 `json:"version"`
}

// PhotosDone reports whether the photo stage has run for this record.
// An empty (but non-nil) list counts: photos are a soft dependency and a
// fully failed fan-out still advances the pipeline.
func (r *GenerationRecord) PhotosDone() bool {
	return r.Photos != nil
}

// Complete reports whether the record satisfies the completion invariant:
// photos attempted, script and audio present.
func (r *GenerationRecord) Complete() bool {
	return r.PhotosDone() && r.Script != nil && r.Audio != nil
}

// Tour assembles the caller-facing package from a completed record.
func (r *GenerationRecord) Tour() *Tour {
	return &Tour{
		PlaceID:   r.PlaceID,
		TourType:  r.TourType,
		PlaceInfo: r.PlaceInfo,
		Photos:    r.Photos,
		Script:    r.Script,
		Audio:     r.Audio,
	}
}
