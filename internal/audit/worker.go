package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultDrainInterval = 2 * time.Second
	defaultBatchSize     = 100
)

// Worker drains the outbox to a sink. It keeps background publishing out of
// the admission path: admissions commit their audit record with the payment,
// the worker ships it afterwards.
type Worker struct {
	outbox   Outbox
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

func WithDrainInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.interval = d }
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) { w.batch = n }
}

func NewWorker(outbox Outbox, sink Sink, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		outbox:   outbox,
		sink:     sink,
		logger:   logger,
		interval: defaultDrainInterval,
		batch:    defaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run drains until the context ends. Publish failures are logged and retried
// on the next tick; events stay in the outbox until the sink accepts them.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.WarnContext(ctx, "audit outbox drain failed", "error", err.Error())
			}
		}
	}
}

// Drain publishes one batch. Exported so tests and shutdown hooks can flush
// without the ticker.
func (w *Worker) Drain(ctx context.Context) error {
	events, err := w.outbox.NextBatch(ctx, w.batch)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		if err := w.sink.Publish(ctx, event); err != nil {
			// Keep ordering: stop at the first failure, mark what shipped.
			if len(published) > 0 {
				if markErr := w.outbox.MarkPublished(ctx, published); markErr != nil {
					return markErr
				}
			}
			return err
		}
		published = append(published, event.ID)
	}
	return w.outbox.MarkPublished(ctx, published)
}
