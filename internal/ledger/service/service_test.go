package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"polledger/internal/audit"
	"polledger/internal/ledger/models"
	"polledger/internal/ledger/store"
	dErrors "polledger/pkg/domain-errors"
	"polledger/pkg/money"
)

type ServiceSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.service = New(s.store, s.store, WithAudit(audit.NewPublisher(s.auditStore)))
}

func (s *ServiceSuite) seedPolicy(premium string, beneficiaries int) uuid.UUID {
	policyID := uuid.New()
	s.store.SeedPolicy(models.Policy{
		ID:           policyID,
		Number:       "POL-" + policyID.String()[:8],
		TotalPremium: money.MustParse(premium),
		Currency:     "GTQ",
		Status:       models.PolicyStatusActive,
		CreatedAt:    time.Now(),
	})
	s.store.SeedBeneficiaries(policyID, beneficiaries)
	return policyID
}

func candidate(amount, receipt string) models.CandidatePayment {
	return models.CandidatePayment{
		Date:          time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Amount:        money.MustParse(amount),
		ReceiptNumber: receipt,
		Method:        models.MethodTransfer,
	}
}

type failingAuditor struct{}

func (failingAuditor) Emit(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}

// A failed rejection audit write is warned about, never surfaced over the
// domain error the caller is owed.
func (s *ServiceSuite) TestAdmitPayment_RejectionAuditFailureIsLoggedNotFatal() {
	policyID := s.seedPolicy("100.00", 0)

	var logBuf bytes.Buffer
	svc := New(s.store, s.store,
		WithAudit(failingAuditor{}),
		WithLogger(slog.New(slog.NewTextHandler(&logBuf, nil))),
	)

	_, err := svc.AdmitPayment(context.Background(), policyID, candidate("50.00", "R-audit"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNoBeneficiaries))
	s.Contains(logBuf.String(), "rejection audit emit failed")
}

func (s *ServiceSuite) TestComputeBalance_UnknownPolicy() {
	_, err := s.service.ComputeBalance(context.Background(), uuid.New())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestComputeBalance_NoPayments() {
	policyID := s.seedPolicy("500.00", 1)

	report, err := s.service.ComputeBalance(context.Background(), policyID)
	s.Require().NoError(err)
	s.Equal("0.00", report.TotalPaid.String())
	s.Equal("500.00", report.Balance.String())
	s.False(report.IsPaid)
}

// Balance never goes negative, even when recorded payments exceed the
// premium (a premium lowered administratively after payments were taken).
func (s *ServiceSuite) TestComputeBalance_ClampedAtZero() {
	policyID := s.seedPolicy("100.00", 1)
	ctx := context.Background()

	_, err := s.service.AdmitPayment(ctx, policyID, candidate("100.00", "R-full"))
	s.Require().NoError(err)

	// Premium lowered out-of-band; existing payments now exceed it.
	s.store.SeedPolicy(models.Policy{
		ID:           policyID,
		TotalPremium: money.MustParse("60.00"),
		Currency:     "GTQ",
		Status:       models.PolicyStatusActive,
	})

	report, err := s.service.ComputeBalance(ctx, policyID)
	s.Require().NoError(err)
	s.Equal("100.00", report.TotalPaid.String())
	s.Equal("0.00", report.Balance.String())
	s.True(report.IsPaid)
}

func (s *ServiceSuite) TestAdmitPayment_Validation() {
	policyID := s.seedPolicy("500.00", 1)
	ctx := context.Background()

	cases := []struct {
		name      string
		mutate    func(*models.CandidatePayment)
		wantField string
	}{
		{"missing date", func(c *models.CandidatePayment) { c.Date = time.Time{} }, "date"},
		{"zero amount", func(c *models.CandidatePayment) { c.Amount = money.Zero() }, "amount"},
		{"negative amount", func(c *models.CandidatePayment) { c.Amount = money.Zero().Sub(money.MustParse("5.00")) }, "amount"},
		{"blank receipt", func(c *models.CandidatePayment) { c.ReceiptNumber = "   " }, "receiptNumber"},
		{"bad method", func(c *models.CandidatePayment) { c.Method = "CHEQUE" }, "method"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			c := candidate("100.00", "R-x")
			tc.mutate(&c)

			_, err := s.service.AdmitPayment(ctx, policyID, c)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Equal(tc.wantField, dErrors.MetaOf(err)["field"])
		})
	}

	// Validation failures never reach the store.
	payments, err := s.store.ListPayments(ctx, models.PaymentFilter{PolicyID: policyID})
	s.Require().NoError(err)
	s.Empty(payments)
}

func (s *ServiceSuite) TestAdmitPayment_PolicyNotFound() {
	_, err := s.service.AdmitPayment(context.Background(), uuid.New(), candidate("10.00", "R-1"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// A payment against a policy with zero beneficiaries is rejected before any
// payment row is created.
func (s *ServiceSuite) TestAdmitPayment_NoBeneficiaries() {
	policyID := s.seedPolicy("500.00", 0)
	ctx := context.Background()

	_, err := s.service.AdmitPayment(ctx, policyID, candidate("100.00", "R-1"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNoBeneficiaries))

	payments, err := s.store.ListPayments(ctx, models.PaymentFilter{PolicyID: policyID})
	s.Require().NoError(err)
	s.Empty(payments)
}

// Overpayment boundary: with 80.00 paid against a 100.00 premium, 20.01 is
// rejected and 20.00 closes the policy.
func (s *ServiceSuite) TestAdmitPayment_OverpaymentBoundary() {
	policyID := s.seedPolicy("100.00", 1)
	ctx := context.Background()

	_, err := s.service.AdmitPayment(ctx, policyID, candidate("80.00", "R-1"))
	s.Require().NoError(err)

	_, err = s.service.AdmitPayment(ctx, policyID, candidate("20.01", "R-2"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeExceedsBalance))
	s.Equal("20.00", dErrors.MetaOf(err)["balance"])

	result, err := s.service.AdmitPayment(ctx, policyID, candidate("20.00", "R-3"))
	s.Require().NoError(err)
	s.Equal("0.00", result.Balance.String())
	s.True(result.IsPaid)
}

// Each successful admission moves totalPaid up by exactly the candidate
// amount and the balance down by the same amount.
func (s *ServiceSuite) TestAdmitPayment_Monotonicity() {
	policyID := s.seedPolicy("300.00", 1)
	ctx := context.Background()

	amounts := []string{"50.00", "125.25", "0.75"}
	paid := money.Zero()
	for i, amt := range amounts {
		result, err := s.service.AdmitPayment(ctx, policyID, candidate(amt, fmt.Sprintf("R-%d", i)))
		s.Require().NoError(err)
		paid = paid.Add(money.MustParse(amt))

		report, err := s.service.ComputeBalance(ctx, policyID)
		s.Require().NoError(err)
		s.Equal(0, report.TotalPaid.Cmp(paid))
		s.Equal(0, report.Balance.Cmp(money.MustParse("300.00").Sub(paid).ClampZero()))
		s.Equal(report.Balance.String(), result.Balance.String())
	}
}

func (s *ServiceSuite) TestAdmitPayment_DuplicateReceiptAcrossPolicies() {
	policyA := s.seedPolicy("500.00", 1)
	policyB := s.seedPolicy("500.00", 1)
	ctx := context.Background()

	_, err := s.service.AdmitPayment(ctx, policyA, candidate("10.00", "R-dup"))
	s.Require().NoError(err)

	// Uniqueness is system-wide, not per policy.
	_, err = s.service.AdmitPayment(ctx, policyB, candidate("99.00", "R-dup"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateReceipt))

	_, err = s.service.AdmitPayment(ctx, policyA, candidate("10.00", "R-dup"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateReceipt))
}

// An unpriced policy (premium 0.00) admits any positive amount; the guard is
// bypassed deliberately until the policy is priced.
func (s *ServiceSuite) TestAdmitPayment_ZeroPremiumLeniency() {
	policyID := s.seedPolicy("0.00", 1)
	ctx := context.Background()

	result, err := s.service.AdmitPayment(ctx, policyID, candidate("9999.99", "R-1"))
	s.Require().NoError(err)
	s.Equal("0.00", result.Balance.String())

	_, err = s.service.AdmitPayment(ctx, policyID, candidate("1.00", "R-2"))
	s.Require().NoError(err)
}

// Full scenario from the payment desk: fresh 500.00 policy, pay it off in
// one receipt, then one more cent is refused with the zero balance attached.
func (s *ServiceSuite) TestAdmitPayment_FullPayoffScenario() {
	policyID := s.seedPolicy("500.00", 1)
	ctx := context.Background()

	result, err := s.service.AdmitPayment(ctx, policyID, candidate("500.00", "R-1"))
	s.Require().NoError(err)
	s.Equal("0.00", result.Balance.String())
	s.True(result.IsPaid)
	s.Equal(models.PaymentStatusRegistered, result.Payment.Status)

	_, err = s.service.AdmitPayment(ctx, policyID, candidate("0.01", "R-2"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeExceedsBalance))
	s.Equal("0.00", dErrors.MetaOf(err)["balance"])
}

// Concurrent admissions against one policy must not jointly exceed the
// premium: the per-policy transaction serializes the guard.
func (s *ServiceSuite) TestAdmitPayment_ConcurrentGuard() {
	policyID := s.seedPolicy("100.00", 1)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.service.AdmitPayment(ctx, policyID, candidate("30.00", fmt.Sprintf("R-%d", n)))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	admitted := 0
	for err := range results {
		if err == nil {
			admitted++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodeExceedsBalance))
		}
	}
	// 3 x 30.00 fit under 100.00; a fourth would exceed it.
	s.Equal(3, admitted)

	report, err := s.service.ComputeBalance(ctx, policyID)
	s.Require().NoError(err)
	s.Equal("90.00", report.TotalPaid.String())
}

func (s *ServiceSuite) TestAdmitPayment_AuditTrail() {
	policyID := s.seedPolicy("100.00", 1)
	ctx := context.Background()

	_, err := s.service.AdmitPayment(ctx, policyID, candidate("100.00", "R-1"))
	s.Require().NoError(err)
	_, err = s.service.AdmitPayment(ctx, policyID, candidate("1.00", "R-2"))
	s.Require().Error(err)

	events := s.auditStore.List()
	s.Require().Len(events, 2)
	s.Equal(audit.ActionPaymentAdmitted, events[0].Action)
	s.Equal("100.00", events[0].Amount)
	s.Equal(audit.ActionPaymentRejected, events[1].Action)
	s.Equal(string(dErrors.CodeExceedsBalance), events[1].Reason)
}

func (s *ServiceSuite) TestGetAndListPayments() {
	policyID := s.seedPolicy("500.00", 1)
	ctx := context.Background()

	result, err := s.service.AdmitPayment(ctx, policyID, candidate("75.00", "R-7"))
	s.Require().NoError(err)

	payment, err := s.service.GetPayment(ctx, result.Payment.ID)
	s.Require().NoError(err)
	s.Equal("R-7", payment.ReceiptNumber)

	_, err = s.service.GetPayment(ctx, uuid.New())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	history, err := s.service.ListPayments(ctx, models.PaymentFilter{PolicyID: policyID})
	s.Require().NoError(err)
	s.Len(history, 1)
}
