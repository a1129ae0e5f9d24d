package cache

import (
	"context"
	"path/filepath"
	"testing"

	"tourgen/pkg/db"
)

func TestSQLiteCache(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	defer d.Close()
	c := NewSQLiteCache(d)
	ctx := context.Background()

	if _, hit := c.GetCache(ctx, "missing"); hit {
		t.Error("Expected cache miss, got hit")
	}

	if err := c.SetCache(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("SetCache failed: %v", err)
	}
	val, hit := c.GetCache(ctx, "k1")
	if !hit || string(val) != "v1" {
		t.Errorf("GetCache = %q, %v", val, hit)
	}

	// Overwrite.
	if err := c.SetCache(ctx, "k1", []byte("v2")); err != nil {
		t.Fatalf("SetCache overwrite failed: %v", err)
	}
	val, _ = c.GetCache(ctx, "k1")
	if string(val) != "v2" {
		t.Errorf("Expected overwritten value, got %q", val)
	}
}

func TestNopCache(t *testing.T) {
	c := NopCache{}
	if err := c.SetCache(context.Background(), "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, hit := c.GetCache(context.Background(), "k"); hit {
		t.Error("NopCache must never hit")
	}
}
