package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"tourgen/pkg/model"
)

// ErrNotFound is returned by Get for keys that do not exist.
var ErrNotFound = errors.New("storage: object not found")

// ObjectStore is the object-storage collaborator contract. Put consumes the
// reader fully, so synthesis output can be streamed in without buffering.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Key layout for pipeline artifacts.

// PhotoKey returns the storage key for the nth photo of a place.
func PhotoKey(placeID string, index int) string {
	return fmt.Sprintf("%s/photos/photo_%d.jpg", placeID, index)
}

// ScriptKey returns the storage key for a place's narration script.
func ScriptKey(placeID string) string {
	return fmt.Sprintf("%s/script/script.txt", placeID)
}

// AudioKey returns the storage key for a place's narrated audio.
func AudioKey(placeID string, tourType model.TourType) string {
	return fmt.Sprintf("%s/audio/%s_audio.mp3", placeID, tourType)
}

// PreviewManifestKey returns the key of a preview eligibility manifest.
func PreviewManifestKey(prefix, city string, tourType model.TourType) string {
	return fmt.Sprintf("%s/%s/%s/places.json", strings.TrimSuffix(prefix, "/"), city, tourType)
}

// URLs maps storage keys to object and CDN URLs.
type URLs struct {
	Bucket    string
	CDNDomain string
}

// ObjectURL returns the canonical object-storage URL for a key.
func (u URLs) ObjectURL(key string) string {
	return fmt.Sprintf("s3://%s/%s", u.Bucket, key)
}

// CDNURL returns the CDN-fronted read URL for a key. Without a configured
// CDN domain it falls back to the object URL.
func (u URLs) CDNURL(key string) string {
	if u.CDNDomain == "" {
		return u.ObjectURL(key)
	}
	return fmt.Sprintf("https://%s/%s", u.CDNDomain, key)
}

// KeyFromObjectURL recovers the storage key from an object URL produced by
// ObjectURL. Downstream stages use it to read artifacts back.
func (u URLs) KeyFromObjectURL(objURL string) (string, error) {
	prefix := fmt.Sprintf("s3://%s/", u.Bucket)
	if !strings.HasPrefix(objURL, prefix) {
		return "", fmt.Errorf("url %q is not in bucket %q", objURL, u.Bucket)
	}
	return strings.TrimPrefix(objURL, prefix), nil
}
