package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tourgen/pkg/config"
	"tourgen/pkg/db"
)

// Publisher is the enqueue side of the stage hand-off.
type Publisher interface {
	Publish(ctx context.Context, queueName string, msg *GenerationMessage) error
}

// Delivery is one received message plus its redelivery bookkeeping.
type Delivery struct {
	ID       string
	Attempts int
	Message  *GenerationMessage
}

// Fixed-width so lexical comparison in SQL matches chronological order.
const timeFormat = "2006-01-02 15:04:05.000000000"

// Queue is a SQLite-backed message queue with visibility timeouts. A
// received message stays invisible until it is acked, nacked, or the
// timeout lapses, after which it is redelivered. Messages that exhaust
// their attempts are parked as dead instead of looping forever.
type Queue struct {
	db          *db.DB
	visibility  time.Duration
	maxAttempts int
}

// New creates a queue on top of the shared database.
func New(d *db.DB, cfg config.QueueConfig) *Queue {
	visibility := time.Duration(cfg.VisibilityTimeout)
	if visibility <= 0 {
		visibility = 5 * time.Minute
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &Queue{db: d, visibility: visibility, maxAttempts: maxAttempts}
}

// Publish enqueues a message, immediately visible.
func (q *Queue) Publish(ctx context.Context, queueName string, msg *GenerationMessage) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO queue_messages (id, queue, body, attempts, visible_at) VALUES (?, ?, ?, 0, ?)`,
		uuid.NewString(), queueName, string(body), time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queueName, err)
	}
	return nil
}

// Receive claims the oldest visible message on the queue, hiding it for the
// visibility timeout. It returns (nil, nil) when the queue is empty. A
// message seen more often than the attempt limit is parked as dead and the
// next candidate is tried.
func (q *Queue) Receive(ctx context.Context, queueName string) (*Delivery, error) {
	for {
		d, err := q.claimNext(ctx, queueName)
		if err != nil || d == nil {
			return nil, err
		}

		if d.Attempts > q.maxAttempts {
			slog.Warn("Dead-lettering message", "queue", queueName, "id", d.ID, "attempts", d.Attempts)
			if _, err := q.db.ExecContext(ctx, `UPDATE queue_messages SET dead = 1 WHERE id = ?`, d.ID); err != nil {
				return nil, fmt.Errorf("failed to dead-letter message: %w", err)
			}
			continue
		}

		msg, err := DecodeMessage([]byte(d.body))
		if err != nil {
			// Malformed payloads can never succeed; park immediately.
			slog.Error("Dead-lettering undecodable message", "queue", queueName, "id", d.ID, "error", err)
			if _, derr := q.db.ExecContext(ctx, `UPDATE queue_messages SET dead = 1 WHERE id = ?`, d.ID); derr != nil {
				return nil, fmt.Errorf("failed to dead-letter message: %w", derr)
			}
			continue
		}

		d.Message = msg
		return &d.Delivery, nil
	}
}

type claimed struct {
	Delivery
	body string
}

func (q *Queue) claimNext(ctx context.Context, queueName string) (*claimed, error) {
	now := time.Now().UTC()

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim: %w", err)
	}
	defer tx.Rollback()

	var d claimed
	err = tx.QueryRowContext(ctx,
		`SELECT id, body, attempts FROM queue_messages
		 WHERE queue = ? AND dead = 0 AND visible_at <= ?
		 ORDER BY created_at, id LIMIT 1`,
		queueName, now.Format(timeFormat)).Scan(&d.ID, &d.body, &d.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select message: %w", err)
	}

	d.Attempts++
	_, err = tx.ExecContext(ctx,
		`UPDATE queue_messages SET attempts = ?, visible_at = ? WHERE id = ?`,
		d.Attempts, now.Add(q.visibility).Format(timeFormat), d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return &d, nil
}

// Ack removes a successfully processed message.
func (q *Queue) Ack(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM queue_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

// Nack makes a message visible again after the given delay so it is
// redelivered without waiting out the full visibility timeout.
func (q *Queue) Nack(ctx context.Context, id string, delay time.Duration) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE queue_messages SET visible_at = ? WHERE id = ?`,
		time.Now().UTC().Add(delay).Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("failed to nack message: %w", err)
	}
	return nil
}

// DeadCount reports how many messages are parked on the queue.
func (q *Queue) DeadCount(ctx context.Context, queueName string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_messages WHERE queue = ? AND dead = 1`, queueName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count dead messages: %w", err)
	}
	return n, nil
}
