package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourgen/pkg/config"
	"tourgen/pkg/db"
	"tourgen/pkg/model"
	"tourgen/pkg/places"
	"tourgen/pkg/preview"
	"tourgen/pkg/queue"
	"tourgen/pkg/request"
	"tourgen/pkg/storage"
	"tourgen/pkg/store"
)

type fakePlaceSource struct {
	info *model.PlaceInfo
	err  error
}

func (f *fakePlaceSource) GetPlaceDetails(ctx context.Context, placeID string) (*model.PlaceInfo, []places.PhotoRef, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	info := *f.info
	info.PlaceID = placeID
	return &info, nil, nil
}

func (f *fakePlaceSource) GetPhoto(ctx context.Context, ref places.PhotoRef, maxW, maxH int) ([]byte, error) {
	return nil, fmt.Errorf("not used")
}

type fixture struct {
	svc   *Service
	store *store.SQLiteStore
	queue *queue.Queue
	blobs *storage.DiskStore
}

func newFixture(t *testing.T, source *fakePlaceSource, cities ...string) *fixture {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	ts := store.New(d)
	q := queue.New(d, config.QueueConfig{
		VisibilityTimeout: config.Duration(time.Minute),
		MaxAttempts:       5,
	})
	gate := preview.New(blobs, config.PreviewConfig{
		Cities:         cities,
		ManifestPrefix: "preview",
	})
	return &fixture{
		svc:   New(ts, q, source, gate),
		store: ts,
		queue: q,
		blobs: blobs,
	}
}

func completedRecord(placeID string) *model.GenerationRecord {
	return &model.GenerationRecord{
		PlaceID:   placeID,
		TourType:  model.TourTypeHistory,
		PlaceInfo: model.PlaceInfo{PlaceID: placeID, Name: "Golden Gate Bridge"},
		Status:    model.StatusCompleted,
		Photos:    []model.Photo{{PhotoID: "ph-1", CDNURL: "https://cdn.test/P1/photos/photo_0.jpg"}},
		Script:    &model.Script{ScriptID: "s-1", CDNURL: "https://cdn.test/P1/script/script.txt"},
		Audio:     &model.Audio{ScriptID: "s-1", CDNURL: "https://cdn.test/P1/audio/history_audio.mp3"},
		CreatedAt: time.Now().UTC(),
	}
}

func TestResolveValidation(t *testing.T) {
	f := newFixture(t, &fakePlaceSource{info: &model.PlaceInfo{Name: "X"}})
	ctx := context.Background()

	_, err := f.svc.Resolve(ctx, ResolveRequest{TourType: "history"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)

	_, err = f.svc.Resolve(ctx, ResolveRequest{PlaceID: "P1", TourType: "bogus"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
}

func TestResolveMissEnqueues(t *testing.T) {
	f := newFixture(t, &fakePlaceSource{info: &model.PlaceInfo{Name: "Golden Gate Bridge"}})
	ctx := context.Background()

	res, err := f.svc.Resolve(ctx, ResolveRequest{PlaceID: "P1", TourType: "history"})
	require.NoError(t, err)
	require.NotNil(t, res.Ack)
	assert.Nil(t, res.Tour)
	assert.Equal(t, model.StatusNotStarted, res.Ack.Status)
	assert.NotEmpty(t, res.Ack.RequestID)

	d, err := f.queue.Receive(ctx, queue.QueuePhotoRetrieval)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "P1", d.Message.PlaceID)
	assert.Equal(t, "Golden Gate Bridge", d.Message.PlaceInfo.Name)
}

func TestResolveCompletedHitDoesNotEnqueue(t *testing.T) {
	f := newFixture(t, &fakePlaceSource{info: &model.PlaceInfo{Name: "X"}})
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, completedRecord("P1")))

	first, err := f.svc.Resolve(ctx, ResolveRequest{PlaceID: "P1", TourType: "history"})
	require.NoError(t, err)
	require.NotNil(t, first.Tour)

	second, err := f.svc.Resolve(ctx, ResolveRequest{PlaceID: "P1", TourType: "history"})
	require.NoError(t, err)
	require.NotNil(t, second.Tour)

	// Byte-identical artifact URLs on repeated calls.
	assert.Equal(t, first.Tour.Audio.CDNURL, second.Tour.Audio.CDNURL)
	assert.Equal(t, first.Tour.Script.CDNURL, second.Tour.Script.CDNURL)
	assert.Equal(t, first.Tour.Photos[0].CDNURL, second.Tour.Photos[0].CDNURL)

	d, err := f.queue.Receive(ctx, queue.QueuePhotoRetrieval)
	require.NoError(t, err)
	assert.Nil(t, d, "cache hit must not publish")
}

func TestResolvePlaceNotFound(t *testing.T) {
	f := newFixture(t, &fakePlaceSource{err: &request.StatusError{StatusCode: http.StatusNotFound, Body: "no such place"}})

	_, err := f.svc.Resolve(context.Background(), ResolveRequest{PlaceID: "ghost", TourType: "history"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
	assert.NotContains(t, apiErr.Message, "no such place", "collaborator detail stays out of the public error")
}

func TestResolveUsesSuppliedPlaceInfo(t *testing.T) {
	source := &fakePlaceSource{err: fmt.Errorf("collaborator down")}
	f := newFixture(t, source)
	ctx := context.Background()

	supplied := &model.PlaceInfo{PlaceID: "P1", Name: "Supplied Name"}
	res, err := f.svc.Resolve(ctx, ResolveRequest{PlaceID: "P1", TourType: "history", PlaceInfo: supplied})
	require.NoError(t, err, "supplied place info avoids the collaborator entirely")
	require.NotNil(t, res.Ack)

	d, _ := f.queue.Receive(ctx, queue.QueuePhotoRetrieval)
	require.NotNil(t, d)
	assert.Equal(t, "Supplied Name", d.Message.PlaceInfo.Name)
}

func writeManifest(t *testing.T, blobs *storage.DiskStore, city string, tourType model.TourType, placeIDs ...string) {
	t.Helper()
	m := preview.Manifest{}
	for _, id := range placeIDs {
		m.Places = append(m.Places, preview.ManifestPlace{PlaceID: id})
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	key := storage.PreviewManifestKey("preview", city, tourType)
	require.NoError(t, blobs.Put(context.Background(), key, bytes.NewReader(data), "application/json"))
}

func TestResolvePreview(t *testing.T) {
	f := newFixture(t, &fakePlaceSource{info: &model.PlaceInfo{Name: "X"}}, "san-francisco")
	ctx := context.Background()
	writeManifest(t, f.blobs, "san-francisco", model.TourTypeHistory, "P1", "P2")
	require.NoError(t, f.store.Put(ctx, completedRecord("P1")))

	t.Run("eligible and completed", func(t *testing.T) {
		res, err := f.svc.ResolvePreview(ctx, ResolveRequest{PlaceID: "P1", TourType: "history"})
		require.NoError(t, err)
		require.NotNil(t, res.Tour)
	})

	t.Run("eligible but still generating", func(t *testing.T) {
		_, err := f.svc.ResolvePreview(ctx, ResolveRequest{PlaceID: "P2", TourType: "history"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Code)
		assert.Equal(t, "tour is still generating", apiErr.Message)
	})

	t.Run("not eligible", func(t *testing.T) {
		_, err := f.svc.ResolvePreview(ctx, ResolveRequest{PlaceID: "P9", TourType: "history"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Code)
		assert.Equal(t, "tour not available", apiErr.Message)
	})
}
