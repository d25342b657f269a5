// Package domainerrors defines the coded error taxonomy shared by all
// services. Every precondition failure travels to the transport layer as a
// named code so handlers can map it to a specific status and message instead
// of a generic failure.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Codes are stable API: handlers and
// clients match on them.
type Code string

const (
	// CodeValidation marks malformed or missing caller input. Never retried.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeNotFound marks a reference that does not resolve (policy, payment,
	// insurer). Never retried.
	CodeNotFound Code = "NOT_FOUND"
	// CodeNoBeneficiaries marks the business-rule precondition that a policy
	// must have at least one beneficiary before payments are accepted.
	CodeNoBeneficiaries Code = "NO_BENEFICIARIES"
	// CodeExceedsBalance marks an admission rejected by the overpayment
	// guard. Carries the current balance in Meta under "balance".
	CodeExceedsBalance Code = "EXCEEDS_BALANCE"
	// CodeDuplicateReceipt marks a receipt number that already exists.
	CodeDuplicateReceipt Code = "DUPLICATE_RECEIPT"
	// CodeUnknownLine marks a sync referencing line-of-business ids that do
	// not exist. Carries the offending ids in Meta under "lineIds".
	CodeUnknownLine Code = "UNKNOWN_LINE_OF_BUSINESS"
	// CodeUnavailable marks a transient collaborator failure. Safe to retry
	// with backoff at the caller's discretion; the service itself never
	// retries.
	CodeUnavailable Code = "STORE_UNAVAILABLE"
	// CodeTimeout marks an operation aborted by context expiry.
	CodeTimeout Code = "TIMEOUT"
	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "INTERNAL"
)

// Error is a coded error with optional structured context.
type Error struct {
	Code    Code
	Message string
	Meta    map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithMeta attaches a context value and returns the error for chaining.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any, 1)
	}
	e.Meta[key] = value
	return e
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a code. The cause stays reachable
// through errors.Unwrap.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// outside the taxonomy.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MetaOf extracts structured context from err, or nil.
func MetaOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Meta
	}
	return nil
}

// ToHTTPStatus maps a code to its transport status. Kept here so every
// handler renders the same mapping.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeUnknownLine:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNoBeneficiaries, CodeExceedsBalance, CodeDuplicateReceipt:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
