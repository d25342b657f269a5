package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"polledger/internal/ledger/models"
	dErrors "polledger/pkg/domain-errors"
	"polledger/pkg/money"
)

// numPolicyShards spreads admission locks across mutexes hashed by policy id
// so unrelated policies never contend.
const numPolicyShards = 128

// defaultTxTimeout bounds a single admission transaction.
const defaultTxTimeout = 5 * time.Second

// InMemoryStore keeps the full ledger state in process. It backs unit tests
// and intentionally favors clarity over performance.
type InMemoryStore struct {
	mu            sync.RWMutex
	policies      map[uuid.UUID]models.Policy
	beneficiaries map[uuid.UUID]int
	payments      map[uuid.UUID]models.Payment
	receipts      map[string]uuid.UUID

	shards  [numPolicyShards]sync.Mutex
	timeout time.Duration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		policies:      make(map[uuid.UUID]models.Policy),
		beneficiaries: make(map[uuid.UUID]int),
		payments:      make(map[uuid.UUID]models.Payment),
		receipts:      make(map[string]uuid.UUID),
	}
}

// SeedPolicy registers a policy. Policy records are owned by the (external)
// policy administration; the ledger store only reads them.
func (s *InMemoryStore) SeedPolicy(policy models.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.ID] = policy
}

// SeedBeneficiaries records the number of beneficiaries on file for a policy.
func (s *InMemoryStore) SeedBeneficiaries(policyID uuid.UUID, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beneficiaries[policyID] = count
}

func (s *InMemoryStore) GetPolicy(_ context.Context, id uuid.UUID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if policy, ok := s.policies[id]; ok {
		return &policy, nil
	}
	return nil, ErrPolicyNotFound
}

func (s *InMemoryStore) HasBeneficiaries(_ context.Context, policyID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.beneficiaries[policyID] > 0, nil
}

func (s *InMemoryStore) SumPayments(_ context.Context, policyID uuid.UUID) (money.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := money.Zero()
	for _, payment := range s.payments {
		if payment.PolicyID == policyID {
			total = total.Add(payment.Amount)
		}
	}
	return total, nil
}

func (s *InMemoryStore) InsertPayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.receipts[payment.ReceiptNumber]; taken {
		return ErrDuplicateReceipt
	}
	s.payments[payment.ID] = *payment
	s.receipts[payment.ReceiptNumber] = payment.ID
	return nil
}

func (s *InMemoryStore) GetPayment(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if payment, ok := s.payments[id]; ok {
		return &payment, nil
	}
	return nil, ErrPaymentNotFound
}

func (s *InMemoryStore) ListPayments(_ context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	filter.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Payment
	for id := range s.payments {
		payment := s.payments[id]
		if filter.PolicyID != uuid.Nil && payment.PolicyID != filter.PolicyID {
			continue
		}
		if filter.ReceiptNumber != "" && payment.ReceiptNumber != filter.ReceiptNumber {
			continue
		}
		if !filter.From.IsZero() && payment.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && payment.Date.After(filter.To) {
			continue
		}
		matched = append(matched, &payment)
	}
	// Newest first, matching the SQL store's ORDER BY.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// RunPolicyTx serializes fn against all other admissions for the same policy
// using a sharded mutex keyed by a hash of the policy id. Without this the
// overpayment guard races: two concurrent admissions can both read the same
// running total and jointly exceed the premium.
func (s *InMemoryStore) RunPolicyTx(ctx context.Context, policyID uuid.UUID, fn func(ctx context.Context, st Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "admission aborted: context cancelled")
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

	shard := shardFor(policyID)
	s.shards[shard].Lock()
	defer s.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "admission aborted: context cancelled")
	}

	return fn(ctx, s)
}

// shardFor hashes the policy id with FNV-1a for even shard distribution.
func shardFor(policyID uuid.UUID) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range policyID {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numPolicyShards)
}
