// Package models holds the policy ledger domain types. Payments are immutable
// once admitted; policies are read-only from the ledger's perspective.
package models

import (
	"time"

	"github.com/google/uuid"

	"polledger/pkg/money"
)

// PolicyStatus is informational for the ledger; admission never mutates it.
type PolicyStatus string

const (
	PolicyStatusActive      PolicyStatus = "ACTIVE"
	PolicyStatusUnderReview PolicyStatus = "UNDER_REVIEW"
	PolicyStatusVoid        PolicyStatus = "VOID"
	PolicyStatusExpired     PolicyStatus = "EXPIRED"
)

// PaymentMethod enumerates how a remittance was made.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether the method is one of the three accepted values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer:
		return true
	}
	return false
}

// PaymentStatus tracks a payment through its lifecycle. The ledger only ever
// writes REGISTERED; RECONCILED is applied by a downstream process.
type PaymentStatus string

const (
	PaymentStatusRegistered PaymentStatus = "REGISTERED"
	PaymentStatusReconciled PaymentStatus = "RECONCILED"
)

// Policy is an insurance contract with a fixed total premium owed over its
// life. TotalPremium may be edited administratively elsewhere, never here.
type Policy struct {
	ID           uuid.UUID    `json:"id"`
	Number       string       `json:"number"`
	TotalPremium money.Amount `json:"totalPremium"`
	Currency     string       `json:"currency"`
	Status       PolicyStatus `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Payment is a single recorded remittance applied against a policy's premium.
type Payment struct {
	ID            uuid.UUID     `json:"id"`
	PolicyID      uuid.UUID     `json:"policyId"`
	Date          time.Time     `json:"date"`
	Amount        money.Amount  `json:"amount"`
	ReceiptNumber string        `json:"receiptNumber"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// CandidatePayment is a proposed payment before admission. The date is stored
// as given; whether it lies in the past is the caller's concern.
type CandidatePayment struct {
	Date          time.Time
	Amount        money.Amount
	ReceiptNumber string
	Method        PaymentMethod
	Notes         string
}

// BalanceReport is the derived payment status of a policy.
type BalanceReport struct {
	TotalPaid money.Amount `json:"totalPaid"`
	Balance   money.Amount `json:"balance"`
	IsPaid    bool         `json:"isPaid"`
}

// AdmissionResult carries the created payment together with the post-payment
// balance so callers need not re-query.
type AdmissionResult struct {
	Payment *Payment     `json:"payment"`
	Balance money.Amount `json:"balance"`
	IsPaid  bool         `json:"isPaid"`
}

// PaymentFilter narrows a payment history listing.
type PaymentFilter struct {
	PolicyID      uuid.UUID // uuid.Nil means no policy filter
	ReceiptNumber string
	From          time.Time // zero means unbounded
	To            time.Time
	Page          int
	Limit         int
}

const (
	// DefaultPageLimit applies when a listing request omits limit.
	DefaultPageLimit = 20
	// MaxPageLimit caps a single history page.
	MaxPageLimit = 1000
)

// Normalize clamps pagination to sane bounds.
func (f *PaymentFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}
