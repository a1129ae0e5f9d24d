package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTourType(t *testing.T) {
	for _, tt := range AllTourTypes() {
		parsed, err := ParseTourType(string(tt))
		if err != nil {
			t.Errorf("ParseTourType(%q) failed: %v", tt, err)
		}
		if parsed != tt {
			t.Errorf("ParseTourType(%q) = %q", tt, parsed)
		}
	}

	if _, err := ParseTourType("culinary"); err == nil {
		t.Error("Expected error for unknown tour type")
	}
	if _, err := ParseTourType(""); err == nil {
		t.Error("Expected error for empty tour type")
	}
}

func TestRecordCompletion(t *testing.T) {
	rec := &GenerationRecord{
		PlaceID:  "P1",
		TourType: TourTypeHistory,
		Status:   StatusInProgress,
	}

	if rec.PhotosDone() {
		t.Error("Nil photos should not count as attempted")
	}
	if rec.Complete() {
		t.Error("Empty record must not be complete")
	}

	// An empty photo list counts as attempted (soft dependency).
	rec.Photos = []Photo{}
	if !rec.PhotosDone() {
		t.Error("Empty photo list should count as attempted")
	}
	if rec.Complete() {
		t.Error("Record without script/audio must not be complete")
	}

	rec.Script = &Script{ScriptID: "s1", PlaceID: "P1"}
	rec.Audio = &Audio{PlaceID: "P1", ScriptID: "s1"}
	if !rec.Complete() {
		t.Error("Record with all artifacts should be complete")
	}
}

func TestRecordTourAssembly(t *testing.T) {
	rec := &GenerationRecord{
		PlaceID:   "P1",
		TourType:  TourTypeArt,
		PlaceInfo: PlaceInfo{PlaceID: "P1", Name: "Louvre"},
		Photos:    []Photo{{PhotoID: "ph1"}},
		Script:    &Script{ScriptID: "s1"},
		Audio:     &Audio{ScriptID: "s1"},
		CreatedAt: time.Now(),
	}

	tour := rec.Tour()
	if tour.PlaceID != "P1" || tour.TourType != TourTypeArt {
		t.Errorf("Tour key mismatch: %s/%s", tour.PlaceID, tour.TourType)
	}
	if len(tour.Photos) != 1 || tour.Script == nil || tour.Audio == nil {
		t.Error("Tour missing artifacts")
	}
	if tour.PlaceInfo.Name != "Louvre" {
		t.Errorf("PlaceInfo not carried over: %+v", tour.PlaceInfo)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rec := &GenerationRecord{
		PlaceID:  "P1",
		TourType: TourTypeNature,
		Status:   StatusCompleted,
		Photos:   []Photo{},
		Version:  3,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got GenerationRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Status != StatusCompleted || got.Version != 3 {
		t.Errorf("Round trip mismatch: %+v", got)
	}
	if got.Photos == nil {
		t.Error("Empty photo list must survive serialization (attempted marker)")
	}
}
