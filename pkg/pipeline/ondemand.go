package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourgen/pkg/llm"
	"tourgen/pkg/model"
	"tourgen/pkg/places"
	"tourgen/pkg/prompt"
	"tourgen/pkg/storage"
	"tourgen/pkg/tts"
)

// OnDemand runs all three stages synchronously for one request, bypassing
// the state table. Artifacts land under a lifecycle-expiring temp prefix, so
// nothing here is cached or idempotent; the trade is latency for ad-hoc and
// preview use.
type OnDemand struct {
	source     PlaceSource
	llm        llm.Provider
	tts        tts.Provider
	store      storage.ObjectStore
	urls       storage.URLs
	tempPrefix string
	maxPhotos  int
}

// NewOnDemand creates a synchronous generator.
func NewOnDemand(source PlaceSource, lp llm.Provider, tp tts.Provider, os storage.ObjectStore, urls storage.URLs, tempPrefix string, maxPhotos int) *OnDemand {
	if tempPrefix == "" {
		tempPrefix = "temp"
	}
	if maxPhotos < 1 {
		maxPhotos = 5
	}
	return &OnDemand{
		source:     source,
		llm:        lp,
		tts:        tp,
		store:      os,
		urls:       urls,
		tempPrefix: strings.TrimSuffix(tempPrefix, "/"),
		maxPhotos:  maxPhotos,
	}
}

func (o *OnDemand) key(k string) string {
	return o.tempPrefix + "/" + k
}

// Generate produces a full tour in-process.
func (o *OnDemand) Generate(ctx context.Context, placeID string, tourType model.TourType) (*model.Tour, error) {
	info, refs, err := o.source.GetPlaceDetails(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("place details: %w", err)
	}

	photos := o.fetchPhotos(ctx, placeID, refs)

	system, user := prompt.BuildScriptPrompt(*info, tourType)
	text, err := o.llm.Complete(ctx, llm.CompletionRequest{System: system, User: user})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	scriptKey := o.key(storage.ScriptKey(placeID))
	if err := o.store.Put(ctx, scriptKey, strings.NewReader(text), "text/plain"); err != nil {
		return nil, fmt.Errorf("failed to store script: %w", err)
	}
	script := &model.Script{
		ScriptID:    uuid.NewString(),
		PlaceID:     placeID,
		PlaceName:   info.Name,
		TourType:    tourType,
		ModelInfo:   o.llm.Info(),
		StorageURL:  o.urls.ObjectURL(scriptKey),
		CDNURL:      o.urls.CDNURL(scriptKey),
		GeneratedAt: time.Now().UTC(),
	}

	stream, err := o.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	defer stream.Close()

	audioKey := o.key(storage.AudioKey(placeID, tourType))
	if err := o.store.Put(ctx, audioKey, stream, "audio/mpeg"); err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}
	audio := &model.Audio{
		PlaceID:     placeID,
		ScriptID:    script.ScriptID,
		ModelInfo:   o.tts.Info(),
		StorageURL:  o.urls.ObjectURL(audioKey),
		CDNURL:      o.urls.CDNURL(audioKey),
		GeneratedAt: time.Now().UTC(),
	}

	return &model.Tour{
		PlaceID:   placeID,
		TourType:  tourType,
		PlaceInfo: *info,
		Photos:    photos,
		Script:    script,
		Audio:     audio,
	}, nil
}

func (o *OnDemand) fetchPhotos(ctx context.Context, placeID string, refs []places.PhotoRef) []model.Photo {
	if len(refs) > o.maxPhotos {
		refs = refs[:o.maxPhotos]
	}
	photos := make([]model.Photo, 0, len(refs))
	for idx, ref := range refs {
		data, err := o.source.GetPhoto(ctx, ref, photoMaxPx, photoMaxPx)
		if err != nil {
			slog.Warn("On-demand photo fetch failed", "place_id", placeID, "index", idx, "error", err)
			continue
		}
		key := o.key(storage.PhotoKey(placeID, idx))
		if err := o.store.Put(ctx, key, bytes.NewReader(data), "image/jpeg"); err != nil {
			slog.Warn("On-demand photo store failed", "place_id", placeID, "index", idx, "error", err)
			continue
		}
		photos = append(photos, model.Photo{
			PhotoID:     uuid.NewString(),
			PlaceID:     placeID,
			StorageURL:  o.urls.ObjectURL(key),
			CDNURL:      o.urls.CDNURL(key),
			Attribution: ref.Attribution,
			Width:       ref.Width,
			Height:      ref.Height,
			RetrievedAt: time.Now().UTC(),
		})
	}
	return photos
}
