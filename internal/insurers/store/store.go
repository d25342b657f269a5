// Package store defines persistence for insurers and their line
// assignments, with in-memory and Postgres implementations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"polledger/internal/insurers/models"
	dErrors "polledger/pkg/domain-errors"
)

// ErrInsurerNotFound is returned when no insurer exists for the given id.
var ErrInsurerNotFound = dErrors.New(dErrors.CodeNotFound, "insurer not found")

// Store is the persistence surface the insurers service depends on.
type Store interface {
	GetInsurer(ctx context.Context, id uuid.UUID) (models.Insurer, error)

	// ListLines returns the full line-of-business catalog.
	ListLines(ctx context.Context) ([]models.LineOfBusiness, error)

	// AssignedLineIDs returns the ids currently assigned to the insurer.
	AssignedLineIDs(ctx context.Context, insurerID uuid.UUID) ([]int64, error)

	// AssignedLines returns the assigned lines joined with the catalog.
	AssignedLines(ctx context.Context, insurerID uuid.UUID) ([]models.LineOfBusiness, error)

	AddAssignments(ctx context.Context, insurerID uuid.UUID, lineIDs []int64, status models.AssignmentStatus, at time.Time) error

	// ReStampAssignments re-applies status and AssignedAt to lines the
	// sync kept. Always called for survivors, even when nothing changed.
	ReStampAssignments(ctx context.Context, insurerID uuid.UUID, lineIDs []int64, status models.AssignmentStatus, at time.Time) error

	RemoveAssignments(ctx context.Context, insurerID uuid.UUID, lineIDs []int64) error
}

// Tx serializes assignment mutations per insurer so a sync observes and
// rewrites the assignment set without interleaving writers.
type Tx interface {
	RunInsurerTx(ctx context.Context, insurerID uuid.UUID, fn func(ctx context.Context, s Store) error) error
}
