package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store is the append-only persistence for audit events. The postgres
// implementation writes to an outbox table inside the caller's transaction
// when one is present, so an admission and its audit record commit together.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Outbox exposes the unpublished backlog to the drain worker.
type Outbox interface {
	NextBatch(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Sink receives drained events. Kafka in production, a recorder in tests.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
