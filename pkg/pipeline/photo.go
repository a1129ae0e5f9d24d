package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourgen/pkg/model"
	"tourgen/pkg/places"
	"tourgen/pkg/queue"
	"tourgen/pkg/storage"
)

// Photo download size passed to the media endpoint.
const photoMaxPx = 1200

// PlaceSource is the place-details collaborator consumed by the pipeline.
// *places.Client satisfies it.
type PlaceSource interface {
	GetPlaceDetails(ctx context.Context, placeID string) (*model.PlaceInfo, []places.PhotoRef, error)
	GetPhoto(ctx context.Context, ref places.PhotoRef, maxWidthPx, maxHeightPx int) ([]byte, error)
}

// PhotoRetriever is the first stage: it fans photo downloads out across a
// bounded pool and uploads them to deterministic storage keys. Photos are a
// soft dependency; the stage succeeds with whatever subset completed.
type PhotoRetriever struct {
	source      PlaceSource
	store       storage.ObjectStore
	urls        storage.URLs
	maxPhotos   int
	concurrency int
}

// NewPhotoRetriever creates the photo stage.
func NewPhotoRetriever(source PlaceSource, os storage.ObjectStore, urls storage.URLs, maxPhotos, concurrency int) *PhotoRetriever {
	if maxPhotos < 1 {
		maxPhotos = 5
	}
	if concurrency < 1 {
		concurrency = 10
	}
	return &PhotoRetriever{source: source, store: os, urls: urls, maxPhotos: maxPhotos, concurrency: concurrency}
}

func (p *PhotoRetriever) Name() string      { return "photo-retrieval" }
func (p *PhotoRetriever) NextQueue() string { return queue.QueueScriptGeneration }

func (p *PhotoRetriever) Done(rec *model.GenerationRecord) bool {
	return rec.PhotosDone()
}

func (p *PhotoRetriever) Work(ctx context.Context, rec *model.GenerationRecord) error {
	info, refs, err := p.source.GetPlaceDetails(ctx, rec.PlaceID)
	if err != nil {
		return fmt.Errorf("place details: %w", err)
	}
	// Enqueued messages may carry a thin place snapshot; adopt the full one.
	if rec.PlaceInfo.Name == "" {
		rec.PlaceInfo = *info
	}

	if len(refs) > p.maxPhotos {
		refs = refs[:p.maxPhotos]
	}

	results := make([]*model.Photo, len(refs))
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(idx int, ref places.PhotoRef) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			photo, err := p.fetchOne(ctx, rec.PlaceID, idx, ref)
			if err != nil {
				// Per-photo failures are swallowed; partial sets are fine.
				slog.Warn("Photo fetch failed", "place_id", rec.PlaceID, "index", idx, "error", err)
				return
			}
			results[idx] = photo
		}(i, ref)
	}
	wg.Wait()

	// Non-nil even when everything failed: the stage was attempted.
	photos := make([]model.Photo, 0, len(results))
	for _, ph := range results {
		if ph != nil {
			photos = append(photos, *ph)
		}
	}
	rec.Photos = photos
	return nil
}

func (p *PhotoRetriever) fetchOne(ctx context.Context, placeID string, idx int, ref places.PhotoRef) (*model.Photo, error) {
	key := storage.PhotoKey(placeID, idx)

	// Already-uploaded photos short-circuit the download.
	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		data, err := p.source.GetPhoto(ctx, ref, photoMaxPx, photoMaxPx)
		if err != nil {
			return nil, err
		}
		if err := p.store.Put(ctx, key, bytes.NewReader(data), "image/jpeg"); err != nil {
			return nil, err
		}
	}

	return &model.Photo{
		PhotoID:     uuid.NewString(),
		PlaceID:     placeID,
		StorageURL:  p.urls.ObjectURL(key),
		CDNURL:      p.urls.CDNURL(key),
		Attribution: ref.Attribution,
		Width:       ref.Width,
		Height:      ref.Height,
		RetrievedAt: time.Now().UTC(),
	}, nil
}
