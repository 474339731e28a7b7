package payments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method enumerates the supported payment methods.
type Method string

const (
	MethodCash         Method = "CASH"
	MethodCreditCard   Method = "CREDIT_CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodCheck        Method = "CHECK"
	MethodOther        Method = "OTHER"
)

// Valid reports whether m names a known method.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodBankTransfer, MethodCheck, MethodOther:
		return true
	}
	return false
}

// PaymentRecord is one payment or reversal event against a document.
// Records are immutable once created; corrections are written as new
// negative-amount reversal records pointing at the original.
type PaymentRecord struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        string          `json:"tenantId"`
	DocumentID      uuid.UUID       `json:"documentId"`
	Amount          decimal.Decimal `json:"amount"`
	Method          Method          `json:"method"`
	Date            time.Time       `json:"date"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty"`
	ReversalOf      *uuid.UUID      `json:"reversalOf,omitempty"`
	ReceiptID       *uuid.UUID      `json:"receiptId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// RecordPaymentRequest records a payment against a document.
type RecordPaymentRequest struct {
	DocumentID      uuid.UUID       `json:"documentId" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Method          Method          `json:"method" validate:"required"`
	Date            time.Time       `json:"date" validate:"required"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty"`
}

// InvalidPaymentError rejects malformed payment input before mutation.
type InvalidPaymentError struct {
	Reason string
}

func (e *InvalidPaymentError) Error() string {
	return fmt.Sprintf("invalid payment: %s", e.Reason)
}

func (e *InvalidPaymentError) Kind() string {
	return "INVALID_PAYMENT"
}

// OverpaymentError rejects a payment exceeding the remaining balance.
type OverpaymentError struct {
	DocumentID uuid.UUID
	Remaining  decimal.Decimal
	Amount     decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds remaining balance %s on document %s",
		e.Amount, e.Remaining, e.DocumentID)
}

func (e *OverpaymentError) Kind() string {
	return "OVERPAYMENT"
}

// NothingToReceiptError rejects receipt generation when no unreceipted
// payments exist.
type NothingToReceiptError struct {
	DocumentID uuid.UUID
}

func (e *NothingToReceiptError) Error() string {
	return fmt.Sprintf("document %s has no payments to receipt", e.DocumentID)
}

func (e *NothingToReceiptError) Kind() string {
	return "NOTHING_TO_RECEIPT"
}
