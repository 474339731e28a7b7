package documents

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocType discriminates the sales document variants.
type DocType string

const (
	DocTypeQuote             DocType = "QUOTE"
	DocTypeSalesOrder        DocType = "SALES_ORDER"
	DocTypeDeliveryNote      DocType = "DELIVERY_NOTE"
	DocTypeInvoice           DocType = "INVOICE"
	DocTypePurchaseInvoice   DocType = "PURCHASE_INVOICE"
	DocTypeTaxInvoiceReceipt DocType = "TAX_INVOICE_RECEIPT"
	DocTypeReceipt           DocType = "RECEIPT"
)

// Valid reports whether t names a known document type.
func (t DocType) Valid() bool {
	switch t {
	case DocTypeQuote, DocTypeSalesOrder, DocTypeDeliveryNote, DocTypeInvoice,
		DocTypePurchaseInvoice, DocTypeTaxInvoiceReceipt, DocTypeReceipt:
		return true
	}
	return false
}

// Status is a per-type document state. The legal values and transitions
// for each DocType live in the transition table in status.go.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusConverted Status = "CONVERTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusPrepared  Status = "PREPARED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusReturned  Status = "RETURNED"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusReceived  Status = "RECEIVED"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
	// StatusFinal marks documents created fully realized (receipts);
	// they never transition.
	StatusFinal Status = "FINAL"
)

// DocumentLine is one priced row on a document. The derived fields are
// always recomputed from the four inputs on every write; a stored derived
// value is never trusted.
type DocumentLine struct {
	ID              uuid.UUID       `json:"id"`
	ItemID          uuid.UUID       `json:"itemId"`
	Description     *string         `json:"description,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	LineSubtotal    decimal.Decimal `json:"lineSubtotal"`
	LineTax         decimal.Decimal `json:"lineTax"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
	LineOrder       int             `json:"lineOrder"`
}

// SalesDocument is the canonical record for a quote, sales order,
// delivery note, invoice, purchase invoice, tax-invoice-receipt or
// receipt. ID, Type, Number, Currency and the provenance edge are
// immutable after creation.
type SalesDocument struct {
	ID                 uuid.UUID       `json:"id"`
	TenantID           string          `json:"tenantId"`
	Type               DocType         `json:"type"`
	Number             string          `json:"number"`
	Status             Status          `json:"status"`
	CustomerID         uuid.UUID       `json:"customerId"`
	DocumentDate       time.Time       `json:"documentDate"`
	DueDate            *time.Time      `json:"dueDate,omitempty"`
	Currency           string          `json:"currency"`
	Lines              []DocumentLine  `json:"lines"`
	Notes              *string         `json:"notes,omitempty"`
	SubTotal           decimal.Decimal `json:"subTotal"`
	VATAmount          decimal.Decimal `json:"vatAmount"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	PaidAmount         decimal.Decimal `json:"paidAmount"`
	SourceDocumentID   *uuid.UUID      `json:"sourceDocumentId,omitempty"`
	SourceDocumentType *DocType        `json:"sourceDocumentType,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// RemainingAmount is the unpaid balance; never negative by the
// overpayment invariant.
func (d *SalesDocument) RemainingAmount() decimal.Decimal {
	return d.TotalAmount.Sub(d.PaidAmount)
}

// FullyPaid reports whether the document balance reached zero.
func (d *SalesDocument) FullyPaid() bool {
	return d.PaidAmount.GreaterThanOrEqual(d.TotalAmount) && d.TotalAmount.IsPositive()
}
