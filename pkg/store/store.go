package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tourgen/pkg/db"
	"tourgen/pkg/model"
)

// TourStore persists generation records keyed by (place_id, tour_type).
type TourStore interface {
	// Get returns the record, or (nil, nil) when none exists.
	Get(ctx context.Context, placeID string, tourType model.TourType) (*model.GenerationRecord, error)
	// Create inserts the record only if none exists yet. Concurrent
	// creators are safe: the insert is silently skipped on conflict and
	// the caller re-reads to observe whichever record won.
	Create(ctx context.Context, rec *model.GenerationRecord) error
	// Put writes the record unconditionally, bumping its version.
	Put(ctx context.Context, rec *model.GenerationRecord) error
	// Claim writes the record only if the stored version still matches
	// rec.Version. It reports whether the write won; a false return means
	// another writer got there first and the caller must re-read.
	Claim(ctx context.Context, rec *model.GenerationRecord) (bool, error)
	// UpdateStatus sets just the status field, read-modify-write.
	UpdateStatus(ctx context.Context, placeID string, tourType model.TourType, status model.GenerationStatus) error
}

// SQLiteStore implements TourStore on the shared database. The serialized
// record in the data column is authoritative; status and created_at are
// duplicated into columns for indexed queries.
type SQLiteStore struct {
	db *db.DB
}

// New creates a store on top of the shared database.
func New(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Get(ctx context.Context, placeID string, tourType model.TourType) (*model.GenerationRecord, error) {
	var data string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version FROM tours WHERE place_id = ? AND tour_type = ?`,
		placeID, tourType).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s/%s: %w", placeID, tourType, err)
	}

	var rec model.GenerationRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s/%s: %w", placeID, tourType, err)
	}
	// The column is the concurrency token of record.
	rec.Version = version
	return &rec, nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec *model.GenerationRecord) error {
	data, err := encodeRecord(rec, 1)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tours (place_id, tour_type, status, version, data, created_at)
		 VALUES (?, ?, ?, 1, ?, ?)
		 ON CONFLICT (place_id, tour_type) DO NOTHING`,
		rec.PlaceID, rec.TourType, rec.Status, data,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to create record %s/%s: %w", rec.PlaceID, rec.TourType, err)
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec *model.GenerationRecord) error {
	next := rec.Version + 1
	data, err := encodeRecord(rec, next)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tours (place_id, tour_type, status, version, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (place_id, tour_type) DO UPDATE SET
		   status = excluded.status, version = excluded.version, data = excluded.data`,
		rec.PlaceID, rec.TourType, rec.Status, next, data,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store record %s/%s: %w", rec.PlaceID, rec.TourType, err)
	}
	rec.Version = next
	return nil
}

func (s *SQLiteStore) Claim(ctx context.Context, rec *model.GenerationRecord) (bool, error) {
	next := rec.Version + 1
	data, err := encodeRecord(rec, next)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tours SET status = ?, version = ?, data = ?
		 WHERE place_id = ? AND tour_type = ? AND version = ?`,
		rec.Status, next, data, rec.PlaceID, rec.TourType, rec.Version)
	if err != nil {
		return false, fmt.Errorf("failed to claim record %s/%s: %w", rec.PlaceID, rec.TourType, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	rec.Version = next
	return true, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, placeID string, tourType model.TourType, status model.GenerationStatus) error {
	rec, err := s.Get(ctx, placeID, tourType)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no record for %s/%s", placeID, tourType)
	}
	rec.Status = status
	return s.Put(ctx, rec)
}

func encodeRecord(rec *model.GenerationRecord, version int64) (string, error) {
	clone := *rec
	clone.Version = version
	data, err := json.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("failed to encode record %s/%s: %w", rec.PlaceID, rec.TourType, err)
	}
	return string(data), nil
}
