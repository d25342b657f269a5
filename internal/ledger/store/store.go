package store

import (
	"context"

	"github.com/google/uuid"

	"polledger/internal/ledger/models"
	dErrors "polledger/pkg/domain-errors"
	"polledger/pkg/money"
)

var (
	// ErrPolicyNotFound keeps storage-specific 404s consistent across
	// implementations.
	ErrPolicyNotFound = dErrors.New(dErrors.CodeNotFound, "policy not found")
	// ErrPaymentNotFound is returned for unknown payment ids.
	ErrPaymentNotFound = dErrors.New(dErrors.CodeNotFound, "payment not found")
	// ErrDuplicateReceipt surfaces the store's receipt uniqueness constraint.
	ErrDuplicateReceipt = dErrors.New(dErrors.CodeDuplicateReceipt, "receipt number already exists")
)

// Store is the persistence surface the ledger needs: policy reads, a
// beneficiary existence check, and the append-only payment record.
type Store interface {
	GetPolicy(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	HasBeneficiaries(ctx context.Context, policyID uuid.UUID) (bool, error)
	SumPayments(ctx context.Context, policyID uuid.UUID) (money.Amount, error)
	InsertPayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
}

// Tx serializes an admission against a single policy. Implementations must
// guarantee that the sum-then-insert sequence inside fn cannot interleave
// with another admission for the same policy: the postgres store holds a row
// lock on the policy inside one transaction, the memory store holds a
// per-policy mutex shard.
// fn receives the transactional context; every store call made during the
// admission must use it.
type Tx interface {
	RunPolicyTx(ctx context.Context, policyID uuid.UUID, fn func(ctx context.Context, s Store) error) error
}
