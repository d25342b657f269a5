package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the ledger and sync services.
const (
	ActionPaymentAdmitted = "payment.admitted"
	ActionPaymentRejected = "payment.rejected"
	ActionLinesSynced     = "lines.synced"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID            uuid.UUID
	Timestamp     time.Time
	Action        string
	PolicyID      string
	PaymentID     string
	ReceiptNumber string
	Amount        string
	InsurerID     string
	Outcome       string
	Reason        string
	RequestID     string
}
