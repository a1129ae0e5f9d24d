package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourgen/pkg/config"
	"tourgen/pkg/db"
	"tourgen/pkg/ingress"
	"tourgen/pkg/llm"
	"tourgen/pkg/model"
	"tourgen/pkg/pipeline"
	"tourgen/pkg/places"
	"tourgen/pkg/preview"
	"tourgen/pkg/queue"
	"tourgen/pkg/storage"
	"tourgen/pkg/store"
	"tourgen/pkg/tracker"
)

type fakeSource struct{}

func (f *fakeSource) GetPlaceDetails(ctx context.Context, placeID string) (*model.PlaceInfo, []places.PhotoRef, error) {
	return &model.PlaceInfo{PlaceID: placeID, Name: "Colosseum"}, nil, nil
}

func (f *fakeSource) GetPhoto(ctx context.Context, ref places.PhotoRef, maxW, maxH int) ([]byte, error) {
	return []byte("jpeg"), nil
}

func (f *fakeSource) SearchNearby(ctx context.Context, center orb.Point, radiusMeters float64, tourType model.TourType, maxResults int) ([]model.PlaceInfo, error) {
	return []model.PlaceInfo{{PlaceID: "P1", Name: "Colosseum", Location: center}}, nil
}

type fakeLLM struct{}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return "Welcome to the Colosseum.", nil
}
func (f *fakeLLM) Info() model.ModelInfo                  { return model.ModelInfo{} }
func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }

type fakeTTS struct{}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("mp3-bytes")), nil
}
func (f *fakeTTS) Info() model.ModelInfo { return model.ModelInfo{} }

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	urls := storage.URLs{Bucket: "tourgen-test", CDNDomain: "cdn.test"}

	ts := store.New(d)
	q := queue.New(d, config.QueueConfig{
		VisibilityTimeout: config.Duration(time.Minute),
		MaxAttempts:       5,
	})
	gate := preview.New(blobs, config.PreviewConfig{ManifestPrefix: "preview"})
	source := &fakeSource{}

	svc := ingress.New(ts, q, source, gate)
	onDemand := pipeline.NewOnDemand(source, &fakeLLM{}, &fakeTTS{}, blobs, urls, "temp/", 5)

	srv := NewServer("127.0.0.1:0", NewTourHandler(svc, onDemand), NewPlacesHandler(source), NewStatsHandler(tracker.New()))
	hs := httptest.NewServer(srv.Handler)
	t.Cleanup(hs.Close)
	return hs, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestHealthAndVersion(t *testing.T) {
	hs, _ := newTestServer(t)

	resp, err := http.Get(hs.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(hs.URL + "/api/version")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var v map[string]string
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&v))
	assert.NotEmpty(t, v["version"])
}

func TestStats(t *testing.T) {
	hs, _ := newTestServer(t)

	resp, err := http.Get(hs.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestResolveEndpoint(t *testing.T) {
	hs, ts := newTestServer(t)

	t.Run("invalid body", func(t *testing.T) {
		resp, err := http.Post(hs.URL+"/api/tours", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown tour type", func(t *testing.T) {
		resp := postJSON(t, hs.URL+"/api/tours", map[string]string{"place_id": "P1", "tour_type": "bogus"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var apiErr ingress.APIError
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.Code)
	})

	t.Run("miss returns accepted ack", func(t *testing.T) {
		resp := postJSON(t, hs.URL+"/api/tours", map[string]string{"place_id": "P1", "tour_type": "history"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		var res ingress.Resolution
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		require.NotNil(t, res.Ack)
		assert.Nil(t, res.Tour)
		assert.Equal(t, "P1", res.Ack.PlaceID)
	})

	t.Run("completed hit returns tour", func(t *testing.T) {
		rec := &model.GenerationRecord{
			PlaceID:   "P2",
			TourType:  model.TourTypeHistory,
			PlaceInfo: model.PlaceInfo{PlaceID: "P2", Name: "Colosseum"},
			Status:    model.StatusCompleted,
			Photos:    []model.Photo{},
			Script:    &model.Script{ScriptID: "s-1", CDNURL: "https://cdn.test/P2/script/script.txt"},
			Audio:     &model.Audio{ScriptID: "s-1", CDNURL: "https://cdn.test/P2/audio/history_audio.mp3"},
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, ts.Put(context.Background(), rec))

		resp := postJSON(t, hs.URL+"/api/tours", map[string]string{"place_id": "P2", "tour_type": "history"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var res ingress.Resolution
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		require.NotNil(t, res.Tour)
		assert.Equal(t, "https://cdn.test/P2/audio/history_audio.mp3", res.Tour.Audio.CDNURL)
	})
}

func TestOnDemandEndpoint(t *testing.T) {
	hs, _ := newTestServer(t)

	t.Run("unknown tour type", func(t *testing.T) {
		resp := postJSON(t, hs.URL+"/api/tours/on-demand", map[string]string{"place_id": "P1", "tour_type": "bogus"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("generates synchronously", func(t *testing.T) {
		resp := postJSON(t, hs.URL+"/api/tours/on-demand", map[string]string{"place_id": "P1", "tour_type": "history"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var tour model.Tour
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&tour))
		require.NotNil(t, tour.Script)
		require.NotNil(t, tour.Audio)
		assert.Contains(t, tour.Audio.CDNURL, "/temp/")
	})
}

func TestNearbyEndpoint(t *testing.T) {
	hs, _ := newTestServer(t)

	t.Run("missing coordinates", func(t *testing.T) {
		resp, err := http.Get(hs.URL + "/api/places?tour_type=history")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("returns places", func(t *testing.T) {
		resp, err := http.Get(hs.URL + "/api/places?lat=41.89&lng=12.49&tour_type=history")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Places []model.PlaceInfo `json:"places"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Places, 1)
		assert.Equal(t, "Colosseum", body.Places[0].Name)
	})
}

func TestPreviewEndpoint(t *testing.T) {
	hs, _ := newTestServer(t)

	// No preview cities configured, so nothing is eligible.
	resp, err := http.Get(hs.URL + "/api/previews/P1?tour_type=history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
