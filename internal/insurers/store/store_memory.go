package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"polledger/internal/insurers/models"
	dErrors "polledger/pkg/domain-errors"
)

const numInsurerShards = 64

const defaultTxTimeout = 5 * time.Second

// InMemoryStore keeps insurers, the lines catalog and assignments in
// process. It backs unit tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	insurers    map[uuid.UUID]models.Insurer
	lines       map[int64]models.LineOfBusiness
	assignments map[uuid.UUID]map[int64]models.Assignment

	shards  [numInsurerShards]sync.Mutex
	timeout time.Duration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		insurers:    make(map[uuid.UUID]models.Insurer),
		lines:       make(map[int64]models.LineOfBusiness),
		assignments: make(map[uuid.UUID]map[int64]models.Assignment),
	}
}

// SeedInsurer registers an insurer record.
func (s *InMemoryStore) SeedInsurer(insurer models.Insurer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insurers[insurer.ID] = insurer
}

// SeedLine adds a catalog entry.
func (s *InMemoryStore) SeedLine(line models.LineOfBusiness) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[line.ID] = line
}

func (s *InMemoryStore) GetInsurer(_ context.Context, id uuid.UUID) (models.Insurer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if insurer, ok := s.insurers[id]; ok {
		return insurer, nil
	}
	return models.Insurer{}, ErrInsurerNotFound
}

func (s *InMemoryStore) ListLines(_ context.Context) ([]models.LineOfBusiness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := make([]models.LineOfBusiness, 0, len(s.lines))
	for _, line := range s.lines {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (s *InMemoryStore) AssignedLineIDs(_ context.Context, insurerID uuid.UUID) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assigned := s.assignments[insurerID]
	ids := make([]int64, 0, len(assigned))
	for id := range assigned {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *InMemoryStore) AssignedLines(_ context.Context, insurerID uuid.UUID) ([]models.LineOfBusiness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assigned := s.assignments[insurerID]
	lines := make([]models.LineOfBusiness, 0, len(assigned))
	for id := range assigned {
		if line, ok := s.lines[id]; ok {
			lines = append(lines, line)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (s *InMemoryStore) AddAssignments(_ context.Context, insurerID uuid.UUID, lineIDs []int64, status models.AssignmentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assigned := s.assignments[insurerID]
	if assigned == nil {
		assigned = make(map[int64]models.Assignment)
		s.assignments[insurerID] = assigned
	}
	for _, id := range lineIDs {
		assigned[id] = models.Assignment{
			InsurerID:  insurerID,
			LineID:     id,
			Status:     status,
			AssignedAt: at,
		}
	}
	return nil
}

func (s *InMemoryStore) ReStampAssignments(_ context.Context, insurerID uuid.UUID, lineIDs []int64, status models.AssignmentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assigned := s.assignments[insurerID]
	for _, id := range lineIDs {
		if a, ok := assigned[id]; ok {
			a.Status = status
			a.AssignedAt = at
			assigned[id] = a
		}
	}
	return nil
}

func (s *InMemoryStore) RemoveAssignments(_ context.Context, insurerID uuid.UUID, lineIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assigned := s.assignments[insurerID]
	for _, id := range lineIDs {
		delete(assigned, id)
	}
	return nil
}

// Assignment reports one stored assignment, for tests.
func (s *InMemoryStore) Assignment(insurerID uuid.UUID, lineID int64) (models.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[insurerID][lineID]
	return a, ok
}

// RunInsurerTx serializes fn against other syncs for the same insurer
// using a sharded mutex keyed by a hash of the insurer id.
func (s *InMemoryStore) RunInsurerTx(ctx context.Context, insurerID uuid.UUID, fn func(ctx context.Context, st Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "sync aborted: context cancelled")
	}

	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := shardFor(insurerID)
	s.shards[shard].Lock()
	defer s.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "sync aborted: context cancelled")
	}

	return fn(ctx, s)
}

func shardFor(insurerID uuid.UUID) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range insurerID {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numInsurerShards)
}
