package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestInitAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Init(path)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"tours", "queue_messages", "http_cache"} {
		var name string
		err := d.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s missing: %v", table, err)
		}
	}

	// Init must be idempotent.
	d2, err := Init(path)
	if err != nil {
		t.Fatalf("Second Init failed: %v", err)
	}
	d2.Close()
}

func TestPruneCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Init(path)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer d.Close()

	old := time.Now().Add(-48 * time.Hour).UTC().Format("2006-01-02 15:04:05")
	if _, err := d.Exec("INSERT INTO http_cache (key, value, created_at) VALUES (?, ?, ?)", "stale", []byte("x"), old); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Exec("INSERT INTO http_cache (key, value) VALUES (?, ?)", "fresh", []byte("y")); err != nil {
		t.Fatal(err)
	}

	if err := d.PruneCache(24 * time.Hour); err != nil {
		t.Fatalf("PruneCache failed: %v", err)
	}

	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM http_cache").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 cache row after prune, got %d", count)
	}
}
