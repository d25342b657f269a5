// Package service implements the policy ledger: it decides whether a proposed
// payment may be admitted against a policy and reports the policy's payment
// status. Orchestration stays here; persistence and locking live in the store.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"polledger/internal/audit"
	"polledger/internal/ledger/metrics"
	"polledger/internal/ledger/models"
	"polledger/internal/ledger/store"
	dErrors "polledger/pkg/domain-errors"
)

const outcomeAdmitted = "admitted"

// AuditPublisher records admission outcomes. The postgres-backed publisher
// writes through the admission transaction when the context carries one.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the policy ledger.
type Service struct {
	store   store.Store
	tx      store.Tx
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() uuid.UUID
}

// Option configures optional collaborators.
type Option func(*Service)

// WithAudit wires the admission audit trail.
func WithAudit(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

// WithMetrics wires prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock fixes time for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDFactory fixes payment id generation for tests.
func WithIDFactory(newID func() uuid.UUID) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates the ledger over a store and its transaction boundary. The two
// are usually the same object; they are separate parameters so tests can
// wrap either.
func New(st store.Store, tx store.Tx, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tx:     tx,
		logger: slog.Default(),
		tracer: otel.Tracer("polledger/ledger"),
		now:    time.Now,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ComputeBalance sums all recorded payments for the policy. No status filter:
// this scope defines no payment cancellation, so every recorded payment
// counts. Read-only.
func (s *Service) ComputeBalance(ctx context.Context, policyID uuid.UUID) (*models.BalanceReport, error) {
	ctx, span := s.tracer.Start(ctx, "PolicyLedger.ComputeBalance")
	defer span.End()
	start := s.now()

	policy, err := s.store.GetPolicy(ctx, policyID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	totalPaid, err := s.store.SumPayments(ctx, policyID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	balance := policy.TotalPremium.Sub(totalPaid).ClampZero()
	s.metrics.ObserveBalanceLatency(s.now().Sub(start))
	return &models.BalanceReport{
		TotalPaid: totalPaid,
		Balance:   balance,
		IsPaid:    balance.IsZero(),
	}, nil
}

// AdmitPayment validates the candidate, then runs the admission inside the
// per-policy transaction so the overpayment guard cannot race a concurrent
// admission. Precondition order is fixed: validation, policy existence,
// beneficiary precondition, overpayment guard, receipt uniqueness. The first
// failure wins and leaves no partial effects.
func (s *Service) AdmitPayment(ctx context.Context, policyID uuid.UUID, candidate models.CandidatePayment) (*models.AdmissionResult, error) {
	ctx, span := s.tracer.Start(ctx, "PolicyLedger.AdmitPayment")
	defer span.End()
	start := s.now()

	if err := validateCandidate(&candidate); err != nil {
		span.RecordError(err)
		s.metrics.IncrementAdmission(string(dErrors.CodeValidation))
		return nil, err
	}

	var result *models.AdmissionResult
	err := s.tx.RunPolicyTx(ctx, policyID, func(txCtx context.Context, st store.Store) error {
		policy, err := st.GetPolicy(txCtx, policyID)
		if err != nil {
			return err
		}

		hasBeneficiaries, err := st.HasBeneficiaries(txCtx, policyID)
		if err != nil {
			return err
		}
		if !hasBeneficiaries {
			return dErrors.New(dErrors.CodeNoBeneficiaries,
				"policy has no beneficiaries on file; register at least one before recording payments")
		}

		totalPaid, err := st.SumPayments(txCtx, policyID)
		if err != nil {
			return err
		}

		// Zero premium means the policy is not priced yet; the guard is
		// deliberately skipped and any positive amount is admitted.
		if policy.TotalPremium.IsPositive() {
			proposed := totalPaid.Add(candidate.Amount)
			if proposed.GreaterThan(policy.TotalPremium) {
				balance := policy.TotalPremium.Sub(totalPaid).ClampZero()
				return dErrors.Newf(dErrors.CodeExceedsBalance,
					"payment exceeds remaining balance of %s", balance).
					WithMeta("balance", balance.String())
			}
		}

		payment := &models.Payment{
			ID:            s.newID(),
			PolicyID:      policyID,
			Date:          candidate.Date,
			Amount:        candidate.Amount,
			ReceiptNumber: candidate.ReceiptNumber,
			Method:        candidate.Method,
			Status:        models.PaymentStatusRegistered,
			Notes:         candidate.Notes,
			CreatedAt:     s.now(),
		}
		if err := st.InsertPayment(txCtx, payment); err != nil {
			return err
		}

		newTotal := totalPaid.Add(payment.Amount)
		balance := policy.TotalPremium.Sub(newTotal).ClampZero()
		result = &models.AdmissionResult{
			Payment: payment,
			Balance: balance,
			IsPaid:  balance.IsZero(),
		}

		// The audit record joins the admission transaction: it commits with
		// the payment or not at all.
		return s.emitAudit(txCtx, audit.Event{
			Action:        audit.ActionPaymentAdmitted,
			PolicyID:      policyID.String(),
			PaymentID:     payment.ID.String(),
			ReceiptNumber: payment.ReceiptNumber,
			Amount:        payment.Amount.String(),
			Outcome:       outcomeAdmitted,
		})
	})
	if err != nil {
		span.RecordError(err)
		code := dErrors.CodeOf(err)
		s.metrics.IncrementAdmission(string(code))
		// The rejection itself is the caller's answer; a failed audit write
		// must not mask it, but it is not silent either.
		if auditErr := s.emitAudit(ctx, audit.Event{
			Action:        audit.ActionPaymentRejected,
			PolicyID:      policyID.String(),
			ReceiptNumber: candidate.ReceiptNumber,
			Amount:        candidate.Amount.String(),
			Outcome:       "rejected",
			Reason:        string(code),
		}); auditErr != nil {
			s.logger.WarnContext(ctx, "rejection audit emit failed",
				"policy_id", policyID.String(),
				"error", auditErr.Error(),
			)
		}
		return nil, err
	}

	s.metrics.IncrementAdmission(outcomeAdmitted)
	s.metrics.ObserveAdmitLatency(s.now().Sub(start))
	return result, nil
}

// GetPayment returns a single payment by id.
func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

// ListPayments returns the payment history matching the filter, newest first.
func (s *Service) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	return s.store.ListPayments(ctx, filter)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, event)
}

func validateCandidate(candidate *models.CandidatePayment) error {
	if candidate.Date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "payment date is required").
			WithMeta("field", "date")
	}
	if !candidate.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero").
			WithMeta("field", "amount")
	}
	candidate.ReceiptNumber = strings.TrimSpace(candidate.ReceiptNumber)
	if candidate.ReceiptNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "receipt number is required").
			WithMeta("field", "receiptNumber")
	}
	if !candidate.Method.Valid() {
		return dErrors.New(dErrors.CodeValidation, "method must be one of CASH, CARD, TRANSFER").
			WithMeta("field", "method")
	}
	return nil
}
