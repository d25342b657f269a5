// Package postgres persists the policy ledger. Receipt uniqueness is a
// database constraint; the admission transaction takes a row lock on the
// policy so concurrent admissions cannot jointly exceed the premium.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"polledger/internal/ledger/models"
	"polledger/internal/ledger/store"
	dErrors "polledger/pkg/domain-errors"
	"polledger/pkg/money"
	txcontext "polledger/pkg/platform/tx"
)

// pq error code for unique constraint violations.
const pqUniqueViolation = "23505"

// Store implements store.Store and store.Tx on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL ledger store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) GetPolicy(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, number, total_premium, currency, status, created_at
		FROM policies
		WHERE id = $1
	`, id)

	var policy models.Policy
	err := row.Scan(&policy.ID, &policy.Number, &policy.TotalPremium, &policy.Currency, &policy.Status, &policy.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPolicyNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "query policy")
	}
	return &policy, nil
}

func (s *Store) HasBeneficiaries(ctx context.Context, policyID uuid.UUID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM policy_beneficiaries WHERE policy_id = $1)
	`, policyID).Scan(&exists)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "query beneficiaries")
	}
	return exists, nil
}

func (s *Store) SumPayments(ctx context.Context, policyID uuid.UUID) (money.Amount, error) {
	var total money.Amount
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE policy_id = $1
	`, policyID).Scan(&total)
	if err != nil {
		return money.Zero(), dErrors.Wrap(err, dErrors.CodeUnavailable, "sum payments")
	}
	return total, nil
}

func (s *Store) InsertPayment(ctx context.Context, payment *models.Payment) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO payments (id, policy_id, payment_date, amount, receipt_number, method, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		payment.ID,
		payment.PolicyID,
		payment.Date,
		payment.Amount,
		payment.ReceiptNumber,
		payment.Method,
		payment.Status,
		payment.Notes,
		payment.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return store.ErrDuplicateReceipt
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "insert payment")
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, policy_id, payment_date, amount, receipt_number, method, status, notes, created_at
		FROM payments
		WHERE id = $1
	`, id)
	payment, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPaymentNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "query payment")
	}
	return payment, nil
}

func (s *Store) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	filter.Normalize()

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.PolicyID != uuid.Nil {
		where = append(where, "policy_id = "+arg(filter.PolicyID))
	}
	if filter.ReceiptNumber != "" {
		where = append(where, "receipt_number = "+arg(filter.ReceiptNumber))
	}
	if !filter.From.IsZero() {
		where = append(where, "payment_date >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "payment_date <= "+arg(filter.To))
	}

	query := `
		SELECT id, policy_id, payment_date, amount, receipt_number, method, status, notes, created_at
		FROM payments`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf("\n\t\tORDER BY created_at DESC\n\t\tLIMIT %s OFFSET %s",
		arg(filter.Limit), arg((filter.Page-1)*filter.Limit))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list payments")
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "scan payment")
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "iterate payments")
	}
	return payments, nil
}

// RunPolicyTx runs fn inside one transaction holding a row lock on the
// policy. The lock serializes the sum-then-insert sequence per policy; the
// unique index on receipt_number makes the conflict check atomic with the
// insert.
func (s *Store) RunPolicyTx(ctx context.Context, policyID uuid.UUID, fn func(ctx context.Context, st store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "begin admission transaction")
	}

	var locked uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM policies WHERE id = $1 FOR UPDATE`, policyID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return store.ErrPolicyNotFound
	}
	if err != nil {
		_ = tx.Rollback()
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "lock policy row")
	}

	if err := fn(txcontext.WithTx(ctx, tx), s); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "commit admission transaction")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var payment models.Payment
	var notes sql.NullString
	err := row.Scan(
		&payment.ID,
		&payment.PolicyID,
		&payment.Date,
		&payment.Amount,
		&payment.ReceiptNumber,
		&payment.Method,
		&payment.Status,
		&notes,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		payment.Notes = notes.String
	}
	return &payment, nil
}
