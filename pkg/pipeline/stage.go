// Package pipeline coordinates the three-stage generation flow: photo
// retrieval, script generation, audio synthesis. Stages hand off through the
// queue and share state only through the generation record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tourgen/pkg/model"
	"tourgen/pkg/queue"
	"tourgen/pkg/store"
)

// Stage is one pipeline position. Work mutates the record's artifact field;
// the shared runner handles loading, claiming, persisting, and forwarding.
type Stage interface {
	Name() string

	// NextQueue names the queue the updated record is forwarded to, or ""
	// for the terminal stage.
	NextQueue() string

	// Done reports whether this stage's artifact is already populated,
	// which makes a redelivered message a no-op.
	Done(rec *model.GenerationRecord) bool

	// Work performs the stage's unit of work and writes the artifact into
	// the record. It must not persist the record itself.
	Work(ctx context.Context, rec *model.GenerationRecord) error
}

// Runner drives any stage through the shared state machine: load or create
// the record, absorb duplicates, claim the stage with a conditional write,
// work, persist, forward.
type Runner struct {
	store store.TourStore
	pub   queue.Publisher
}

// NewRunner creates a stage runner.
func NewRunner(ts store.TourStore, pub queue.Publisher) *Runner {
	return &Runner{store: ts, pub: pub}
}

// Handle processes one delivery for the given stage. A nil return means the
// message can be acked, whether work happened or the message was absorbed as
// a duplicate. An error means the work failed and queue redelivery applies.
func (r *Runner) Handle(ctx context.Context, stage Stage, msg *queue.GenerationMessage) error {
	rec, err := r.loadOrCreate(ctx, msg)
	if err != nil {
		return err
	}

	// Duplicate absorption: finished records, or an in-flight record whose
	// artifact for this stage is already written, mean redelivery.
	if rec.Status == model.StatusCompleted || (rec.Status == model.StatusInProgress && stage.Done(rec)) {
		slog.Info("Skipping duplicate delivery", "stage", stage.Name(),
			"place_id", rec.PlaceID, "tour_type", rec.TourType, "status", rec.Status)
		return nil
	}

	// Conditional transition to IN_PROGRESS. Exactly one of any concurrent
	// duplicate deliveries wins; losers ack and let the winner finish.
	rec.Status = model.StatusInProgress
	won, err := r.store.Claim(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to claim %s stage for %s/%s: %w", stage.Name(), rec.PlaceID, rec.TourType, err)
	}
	if !won {
		slog.Info("Lost stage claim to a concurrent delivery", "stage", stage.Name(),
			"place_id", rec.PlaceID, "tour_type", rec.TourType)
		return nil
	}

	if err := stage.Work(ctx, rec); err != nil {
		r.markFailed(ctx, rec.PlaceID, rec.TourType)
		return fmt.Errorf("%s stage failed for %s/%s: %w", stage.Name(), rec.PlaceID, rec.TourType, err)
	}

	if stage.NextQueue() == "" {
		rec.Status = model.StatusCompleted
	}
	if err := r.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist %s stage for %s/%s: %w", stage.Name(), rec.PlaceID, rec.TourType, err)
	}

	// Forward only after the write above succeeded, so downstream never
	// observes an artifact that is not durably recorded.
	if next := stage.NextQueue(); next != "" {
		fwd := &queue.GenerationMessage{
			PlaceID:   rec.PlaceID,
			TourType:  rec.TourType,
			PlaceInfo: rec.PlaceInfo,
			RequestID: msg.RequestID,
		}
		if err := r.pub.Publish(ctx, next, fwd); err != nil {
			return fmt.Errorf("failed to forward %s/%s to %s: %w", rec.PlaceID, rec.TourType, next, err)
		}
	}

	slog.Info("Stage complete", "stage", stage.Name(),
		"place_id", rec.PlaceID, "tour_type", rec.TourType, "status", rec.Status)
	return nil
}

func (r *Runner) loadOrCreate(ctx context.Context, msg *queue.GenerationMessage) (*model.GenerationRecord, error) {
	rec, err := r.store.Get(ctx, msg.PlaceID, msg.TourType)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	fresh := &model.GenerationRecord{
		PlaceID:   msg.PlaceID,
		TourType:  msg.TourType,
		PlaceInfo: msg.PlaceInfo,
		Status:    model.StatusNotStarted,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Create(ctx, fresh); err != nil {
		return nil, err
	}
	// Re-read so concurrent creators all observe the same winning row.
	rec, err = r.store.Get(ctx, msg.PlaceID, msg.TourType)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("record for %s/%s vanished after create", msg.PlaceID, msg.TourType)
	}
	return rec, nil
}

// markFailed is the best-effort FAILED write before an error propagates.
// Its own failure is logged and swallowed; the queue retry still applies.
func (r *Runner) markFailed(ctx context.Context, placeID string, tourType model.TourType) {
	if err := r.store.UpdateStatus(ctx, placeID, tourType, model.StatusFailed); err != nil {
		slog.Error("Failed to mark record as failed", "place_id", placeID, "tour_type", tourType, "error", err)
	}
}
