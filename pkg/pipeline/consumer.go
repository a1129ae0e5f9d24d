package pipeline

import (
	"context"
	"log/slog"
	"time"

	"tourgen/pkg/config"
	"tourgen/pkg/queue"
)

// Receiver is the consume side of the queue. *queue.Queue satisfies it.
type Receiver interface {
	Receive(ctx context.Context, queueName string) (*queue.Delivery, error)
	Ack(ctx context.Context, id string) error
}

// Consumer polls one queue and drives one stage through the runner.
type Consumer struct {
	queueName    string
	rcv          Receiver
	runner       *Runner
	stage        Stage
	pollInterval time.Duration
}

// NewConsumer creates a consumer for the stage's queue.
func NewConsumer(queueName string, rcv Receiver, runner *Runner, stage Stage, cfg config.QueueConfig) *Consumer {
	pollInterval := time.Duration(cfg.PollInterval)
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Consumer{
		queueName:    queueName,
		rcv:          rcv,
		runner:       runner,
		stage:        stage,
		pollInterval: pollInterval,
	}
}

// Run polls until the context is cancelled. A failed delivery is left
// unacked; the visibility timeout redelivers it and the attempt limit
// eventually dead-letters it.
func (c *Consumer) Run(ctx context.Context) {
	slog.Info("Consumer started", "queue", c.queueName, "stage", c.stage.Name())
	for {
		if ctx.Err() != nil {
			slog.Info("Consumer stopped", "queue", c.queueName)
			return
		}

		d, err := c.rcv.Receive(ctx, c.queueName)
		if err != nil {
			slog.Error("Receive failed", "queue", c.queueName, "error", err)
			c.sleep(ctx)
			continue
		}
		if d == nil {
			c.sleep(ctx)
			continue
		}

		if err := c.runner.Handle(ctx, c.stage, d.Message); err != nil {
			slog.Error("Delivery failed", "queue", c.queueName, "id", d.ID,
				"attempts", d.Attempts, "error", err)
			continue
		}

		if err := c.rcv.Ack(ctx, d.ID); err != nil {
			slog.Error("Ack failed", "queue", c.queueName, "id", d.ID, "error", err)
		}
	}
}

func (c *Consumer) sleep(ctx context.Context) {
	select {
	case <-time.After(c.pollInterval):
	case <-ctx.Done():
	}
}
