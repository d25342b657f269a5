// Package postgres persists insurers and line assignments. A sync runs
// inside one transaction holding a row lock on the insurer, so the
// diff-then-rewrite of the assignment set is atomic.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"polledger/internal/insurers/models"
	"polledger/internal/insurers/store"
	dErrors "polledger/pkg/domain-errors"
	txcontext "polledger/pkg/platform/tx"
)

// Store implements store.Store and store.Tx on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL insurers store.
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

func (s *Store) GetInsurer(ctx context.Context, id uuid.UUID) (models.Insurer, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, name, status, created_at
		FROM insurers
		WHERE id = $1
	`, id)

	var insurer models.Insurer
	err := row.Scan(&insurer.ID, &insurer.Name, &insurer.Status, &insurer.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Insurer{}, store.ErrInsurerNotFound
	}
	if err != nil {
		return models.Insurer{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "query insurer")
	}
	return insurer, nil
}

func (s *Store) ListLines(ctx context.Context) ([]models.LineOfBusiness, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, code
		FROM lines_of_business
		ORDER BY id
	`)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list lines")
	}
	defer rows.Close()

	var lines []models.LineOfBusiness
	for rows.Next() {
		var line models.LineOfBusiness
		if err := rows.Scan(&line.ID, &line.Name, &line.Code); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "scan line")
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "iterate lines")
	}
	return lines, nil
}

func (s *Store) AssignedLineIDs(ctx context.Context, insurerID uuid.UUID) ([]int64, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT line_id
		FROM insurer_lines
		WHERE insurer_id = $1
		ORDER BY line_id
	`, insurerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "query assignments")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "scan assignment")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "iterate assignments")
	}
	return ids, nil
}

func (s *Store) AssignedLines(ctx context.Context, insurerID uuid.UUID) ([]models.LineOfBusiness, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT l.id, l.name, l.code
		FROM insurer_lines a
		JOIN lines_of_business l ON l.id = a.line_id
		WHERE a.insurer_id = $1
		ORDER BY l.id
	`, insurerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "query assigned lines")
	}
	defer rows.Close()

	var lines []models.LineOfBusiness
	for rows.Next() {
		var line models.LineOfBusiness
		if err := rows.Scan(&line.ID, &line.Name, &line.Code); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "scan assigned line")
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "iterate assigned lines")
	}
	return lines, nil
}

func (s *Store) AddAssignments(ctx context.Context, insurerID uuid.UUID, lineIDs []int64, status models.AssignmentStatus, at time.Time) error {
	if len(lineIDs) == 0 {
		return nil
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO insurer_lines (insurer_id, line_id, status, assigned_at)
		SELECT $1, unnest($2::bigint[]), $3, $4
	`, insurerID, pq.Array(lineIDs), status, at)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "add assignments")
	}
	return nil
}

func (s *Store) ReStampAssignments(ctx context.Context, insurerID uuid.UUID, lineIDs []int64, status models.AssignmentStatus, at time.Time) error {
	if len(lineIDs) == 0 {
		return nil
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE insurer_lines
		SET status = $3, assigned_at = $4
		WHERE insurer_id = $1 AND line_id = ANY($2)
	`, insurerID, pq.Array(lineIDs), status, at)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "re-stamp assignments")
	}
	return nil
}

func (s *Store) RemoveAssignments(ctx context.Context, insurerID uuid.UUID, lineIDs []int64) error {
	if len(lineIDs) == 0 {
		return nil
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM insurer_lines
		WHERE insurer_id = $1 AND line_id = ANY($2)
	`, insurerID, pq.Array(lineIDs))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "remove assignments")
	}
	return nil
}

// RunInsurerTx runs fn inside one transaction holding a row lock on the
// insurer, so concurrent syncs for the same insurer serialize.
func (s *Store) RunInsurerTx(ctx context.Context, insurerID uuid.UUID, fn func(ctx context.Context, st store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "begin sync transaction")
	}

	var locked uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM insurers WHERE id = $1 FOR UPDATE`, insurerID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return store.ErrInsurerNotFound
	}
	if err != nil {
		_ = tx.Rollback()
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "lock insurer row")
	}

	if err := fn(txcontext.WithTx(ctx, tx), s); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "commit sync transaction")
	}
	return nil
}
