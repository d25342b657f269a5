// Package postgres implements the audit store with a transactional outbox:
// events land in the outbox table inside the caller's transaction and are
// shipped to Kafka by the drain worker. Kafka is the downstream source of
// truth for the audit trail.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"polledger/internal/audit"
	txcontext "polledger/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure shipped to Kafka. Field names match
// audit.Event so consumers deserialize it directly.
type payload struct {
	ID            string `json:"ID"`
	Timestamp     string `json:"Timestamp"`
	Action        string `json:"Action"`
	PolicyID      string `json:"PolicyID,omitempty"`
	PaymentID     string `json:"PaymentID,omitempty"`
	ReceiptNumber string `json:"ReceiptNumber,omitempty"`
	Amount        string `json:"Amount,omitempty"`
	InsurerID     string `json:"InsurerID,omitempty"`
	Outcome       string `json:"Outcome,omitempty"`
	Reason        string `json:"Reason,omitempty"`
	RequestID     string `json:"RequestID,omitempty"`
}

func toPayload(event audit.Event) payload {
	return payload{
		ID:            event.ID.String(),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Action:        event.Action,
		PolicyID:      event.PolicyID,
		PaymentID:     event.PaymentID,
		ReceiptNumber: event.ReceiptNumber,
		Amount:        event.Amount,
		InsurerID:     event.InsurerID,
		Outcome:       event.Outcome,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
	}
}

// Append writes an audit event to the outbox. When the context carries the
// admission transaction, the event commits or rolls back with the payment.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	body, err := json.Marshal(toPayload(event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, action, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, event.ID, event.Action, body, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// NextBatch returns unpublished events oldest-first.
func (s *Store) NextBatch(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var id uuid.UUID
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("unmarshal outbox entry %s: %w", id, err)
		}
		event := audit.Event{
			ID:            id,
			Action:        p.Action,
			PolicyID:      p.PolicyID,
			PaymentID:     p.PaymentID,
			ReceiptNumber: p.ReceiptNumber,
			Amount:        p.Amount,
			InsurerID:     p.InsurerID,
			Outcome:       p.Outcome,
			Reason:        p.Reason,
			RequestID:     p.RequestID,
		}
		if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
			event.Timestamp = ts
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

// MarkPublished stamps the given outbox entries.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox
		SET published_at = NOW()
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
