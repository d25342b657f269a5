// Package service reconciles insurer line-of-business assignments. A sync
// takes the desired set of lines and makes stored assignments match it:
// missing lines are inserted, surviving lines are re-stamped, and lines no
// longer desired are removed, all inside one transaction.
package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"polledger/internal/audit"
	"polledger/internal/insurers/metrics"
	"polledger/internal/insurers/models"
	"polledger/internal/insurers/store"
	dErrors "polledger/pkg/domain-errors"
)

const outcomeSynced = "synced"

// Catalog resolves the known line-of-business catalog. In production this is
// the Redis read-through cache over the store.
type Catalog interface {
	Lines(ctx context.Context) ([]models.LineOfBusiness, error)
}

// CatalogInvalidator is implemented by catalog sources that hold cached
// entries. A successful sync evicts the cache so follow-up reads see fresh
// reference data.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context)
}

// AuditPublisher records sync outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages insurer line assignments.
type Service struct {
	store   store.Store
	tx      store.Tx
	catalog Catalog
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithCatalog overrides the catalog source, usually with the Redis cache.
func WithCatalog(c Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithAudit wires the sync audit trail.
func WithAudit(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

// WithMetrics wires prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock fixes time for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates the insurers service. The catalog defaults to reading the
// store directly; WithCatalog swaps in the cache.
func New(st store.Store, tx store.Tx, opts ...Option) *Service {
	s := &Service{
		store:   st,
		tx:      tx,
		catalog: storeCatalog{st},
		tracer:  otel.Tracer("polledger/insurers"),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type storeCatalog struct{ st store.Store }

func (c storeCatalog) Lines(ctx context.Context) ([]models.LineOfBusiness, error) {
	return c.st.ListLines(ctx)
}

// SyncLines reconciles the insurer's assignments with the desired line ids.
// Duplicates in the input collapse to one. Unknown line ids fail the whole
// sync before any write. The requested status is applied to every inserted
// and every surviving assignment, so the sync is idempotent on the set but
// always rewrites survivor rows.
func (s *Service) SyncLines(ctx context.Context, insurerID uuid.UUID, lineIDs []int64, status models.AssignmentStatus) (*models.SyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "Insurers.SyncLines")
	defer span.End()
	start := s.now()

	if status == "" {
		status = models.AssignmentActive
	}
	if !status.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "status must be one of ACTIVE, INACTIVE").
			WithMeta("field", "status")
	}

	desired := dedupe(lineIDs)

	if err := s.validateKnown(ctx, desired); err != nil {
		span.RecordError(err)
		s.metrics.IncrementSync(string(dErrors.CodeOf(err)))
		return nil, err
	}

	var result models.SyncResult
	err := s.tx.RunInsurerTx(ctx, insurerID, func(ctx context.Context, st store.Store) error {
		if _, err := st.GetInsurer(ctx, insurerID); err != nil {
			return err
		}

		assignedIDs, err := st.AssignedLineIDs(ctx, insurerID)
		if err != nil {
			return err
		}
		assigned := make(map[int64]bool, len(assignedIDs))
		for _, id := range assignedIDs {
			assigned[id] = true
		}

		var toAdd, toKeep []int64
		for _, id := range desired {
			if assigned[id] {
				toKeep = append(toKeep, id)
			} else {
				toAdd = append(toAdd, id)
			}
			delete(assigned, id)
		}
		toRemove := make([]int64, 0, len(assigned))
		for id := range assigned {
			toRemove = append(toRemove, id)
		}
		sort.Slice(toRemove, func(i, j int) bool { return toRemove[i] < toRemove[j] })

		now := s.now()
		if err := st.AddAssignments(ctx, insurerID, toAdd, status, now); err != nil {
			return err
		}
		if err := st.ReStampAssignments(ctx, insurerID, toKeep, status, now); err != nil {
			return err
		}
		if err := st.RemoveAssignments(ctx, insurerID, toRemove); err != nil {
			return err
		}

		result = models.SyncResult{
			Added:   len(toAdd),
			Updated: len(toKeep),
			Removed: len(toRemove),
			Status:  status,
		}

		if s.auditor != nil {
			event := audit.Event{
				Action:    audit.ActionLinesSynced,
				InsurerID: insurerID.String(),
				Outcome:   outcomeSynced,
			}
			if err := s.auditor.Emit(ctx, event); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "record sync audit event")
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.IncrementSync(string(dErrors.CodeOf(err)))
		return nil, err
	}

	if inv, ok := s.catalog.(CatalogInvalidator); ok {
		inv.Invalidate(ctx)
	}

	s.metrics.IncrementSync(outcomeSynced)
	s.metrics.ObserveSyncLatency(s.now().Sub(start).Seconds())
	return &result, nil
}

// AssignedLines returns the lines currently assigned to the insurer.
func (s *Service) AssignedLines(ctx context.Context, insurerID uuid.UUID) ([]models.LineOfBusiness, error) {
	if _, err := s.store.GetInsurer(ctx, insurerID); err != nil {
		return nil, err
	}
	return s.store.AssignedLines(ctx, insurerID)
}

// AvailableLines returns catalog lines not yet assigned to the insurer.
func (s *Service) AvailableLines(ctx context.Context, insurerID uuid.UUID) ([]models.LineOfBusiness, error) {
	if _, err := s.store.GetInsurer(ctx, insurerID); err != nil {
		return nil, err
	}
	assigned, err := s.store.AssignedLineIDs(ctx, insurerID)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]bool, len(assigned))
	for _, id := range assigned {
		taken[id] = true
	}

	catalog, err := s.catalog.Lines(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]models.LineOfBusiness, 0, len(catalog))
	for _, line := range catalog {
		if !taken[line.ID] {
			available = append(available, line)
		}
	}
	return available, nil
}

// CatalogLines returns the full line-of-business catalog.
func (s *Service) CatalogLines(ctx context.Context) ([]models.LineOfBusiness, error) {
	return s.catalog.Lines(ctx)
}

// validateKnown rejects the sync when any desired id is absent from the
// catalog, reporting every offending id at once.
func (s *Service) validateKnown(ctx context.Context, desired []int64) error {
	catalog, err := s.catalog.Lines(ctx)
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(catalog))
	for _, line := range catalog {
		known[line.ID] = true
	}

	var unknown []int64
	for _, id := range desired {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return dErrors.New(dErrors.CodeUnknownLine, "unknown line of business").
			WithMeta("lineIds", unknown)
	}
	return nil
}

// dedupe collapses duplicates while preserving first-seen order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
