package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polledger/internal/ledger/models"
	dErrors "polledger/pkg/domain-errors"
	"polledger/pkg/money"
)

func testPayment(policyID uuid.UUID, amount, receipt string, createdAt time.Time) *models.Payment {
	return &models.Payment{
		ID:            uuid.New(),
		PolicyID:      policyID,
		Date:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Amount:        money.MustParse(amount),
		ReceiptNumber: receipt,
		Method:        models.MethodCash,
		Status:        models.PaymentStatusRegistered,
		CreatedAt:     createdAt,
	}
}

func TestGetPolicyNotFound(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.GetPolicy(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSumPaymentsPerPolicy(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	policyA := uuid.New()
	policyB := uuid.New()

	require.NoError(t, s.InsertPayment(ctx, testPayment(policyA, "100.00", "R-1", time.Now())))
	require.NoError(t, s.InsertPayment(ctx, testPayment(policyA, "50.50", "R-2", time.Now())))
	require.NoError(t, s.InsertPayment(ctx, testPayment(policyB, "999.00", "R-3", time.Now())))

	total, err := s.SumPayments(ctx, policyA)
	require.NoError(t, err)
	assert.Equal(t, "150.50", total.String())

	empty, err := s.SumPayments(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestDuplicateReceiptIsGlobal(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertPayment(ctx, testPayment(uuid.New(), "10.00", "R-42", time.Now())))

	// Same receipt against a different policy still conflicts.
	err := s.InsertPayment(ctx, testPayment(uuid.New(), "75.00", "R-42", time.Now()))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateReceipt))
}

func TestListPaymentsFiltersAndPaginates(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	policyID := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		p := testPayment(policyID, "10.00", "R-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		p.Date = base.AddDate(0, 0, i)
		require.NoError(t, s.InsertPayment(ctx, p))
	}

	page, err := s.ListPayments(ctx, models.PaymentFilter{PolicyID: policyID, Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Newest first.
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	page2, err := s.ListPayments(ctx, models.PaymentFilter{PolicyID: policyID, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)

	ranged, err := s.ListPayments(ctx, models.PaymentFilter{
		PolicyID: policyID,
		From:     base.AddDate(0, 0, 3),
		Page:     1,
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	byReceipt, err := s.ListPayments(ctx, models.PaymentFilter{ReceiptNumber: "R-c", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, byReceipt, 1)
	assert.Equal(t, "R-c", byReceipt[0].ReceiptNumber)
}

func TestRunPolicyTxHonorsCancelledContext(t *testing.T) {
	s := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunPolicyTx(ctx, uuid.New(), func(context.Context, Store) error { return nil })
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}
