package shared

import "errors"

var (
	// ErrNotFound indicates an unknown document, item or party id.
	ErrNotFound = errors.New("not found")
	// ErrTenantRequired indicates a missing tenant context.
	ErrTenantRequired = errors.New("tenant context required")
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation failed")
)

// Kinder is implemented by domain errors that carry a stable
// machine-readable kind alongside the human-readable message.
type Kinder interface {
	error
	Kind() string
}

// Error kinds shared across the engine. Handlers map these onto HTTP
// problem responses; clients switch on them for localized display.
const (
	KindInvalidLine          = "INVALID_LINE"
	KindIllegalTransition    = "ILLEGAL_TRANSITION"
	KindConversionNotAllowed = "CONVERSION_NOT_ALLOWED"
	KindAlreadyConverted     = "ALREADY_CONVERTED"
	KindInvalidPayment       = "INVALID_PAYMENT"
	KindOverpayment          = "OVERPAYMENT"
	KindCancelWithPayments   = "CANCEL_WITH_PAYMENTS"
	KindNothingToReceipt     = "NOTHING_TO_RECEIPT"
	KindConcurrencyConflict  = "CONCURRENCY_CONFLICT"
	KindDocumentLocked       = "DOCUMENT_LOCKED"
	KindNotFound             = "NOT_FOUND"
)
