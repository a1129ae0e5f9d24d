package request

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tourgen/pkg/cache"
	"tourgen/pkg/config"
	"tourgen/pkg/tracker"
)

func testConfig() config.RequestConfig {
	return config.RequestConfig{
		Retries: 3,
		Timeout: config.Duration(5 * time.Second),
		Backoff: config.BackoffConfig{
			BaseDelay: config.Duration(time.Millisecond),
			MaxDelay:  config.Duration(10 * time.Millisecond),
		},
	}
}

// memCache is an in-memory Cacher for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) SetCache(ctx context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

func TestGetCachesResponse(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := New(testConfig(), newMemCache(), tracker.New())

	body, err := c.Get(context.Background(), srv.URL, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("Body = %q", body)
	}

	// Second call must be served from cache.
	if _, err := c.Get(context.Background(), srv.URL, "key1"); err != nil {
		t.Fatalf("Cached Get failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 upstream call, got %d", calls)
	}
}

func TestRetryOn5xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(testConfig(), cache.NopCache{}, tracker.New())
	body, err := c.Get(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Body = %q", body)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	}))
	defer srv.Close()

	c := New(testConfig(), cache.NopCache{}, tracker.New())
	_, err := c.Get(context.Background(), srv.URL, "")
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("Expected StatusError 404, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestPostSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		w.Write([]byte("created"))
	}))
	defer srv.Close()

	c := New(testConfig(), cache.NopCache{}, tracker.New())
	body, err := c.Post(context.Background(), srv.URL, []byte(`{"a":1}`), "application/json")
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if string(body) != "created" {
		t.Errorf("Body = %q", body)
	}
}

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"places.googleapis.com", "places"},
		{"generativelanguage.googleapis.com", "gemini"},
		{"api.openai.com", "openai"},
		{"eastus.tts.speech.microsoft.com", "speech"},
		{"example.com", "example.com"},
	}
	for _, tt := range tests {
		if got := normalizeProvider(tt.host); got != tt.want {
			t.Errorf("normalizeProvider(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}
