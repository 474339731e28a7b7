package documents

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineRequest is the caller-supplied shape of one line. UnitPrice and
// TaxRate are optional: a missing price defaults from the catalog item,
// a missing tax rate from the configured jurisdiction VAT rate. Any
// caller-supplied derived amounts are ignored and recomputed.
type LineRequest struct {
	ItemID          uuid.UUID        `json:"itemId" validate:"required"`
	Description     *string          `json:"description,omitempty"`
	Quantity        decimal.Decimal  `json:"quantity" validate:"required"`
	UnitPrice       *decimal.Decimal `json:"unitPrice,omitempty"`
	DiscountPercent decimal.Decimal  `json:"discountPercent"`
	TaxRate         *decimal.Decimal `json:"taxRate,omitempty"`
	LineOrder       int              `json:"lineOrder" validate:"gte=0"`
}

// CreateDocumentRequest creates a document directly (not via
// conversion). Draft-capable types may start with zero lines; they just
// cannot leave Draft without at least one. An omitted currency falls
// back to the configured default.
type CreateDocumentRequest struct {
	Type         DocType       `json:"type" validate:"required"`
	CustomerID   uuid.UUID     `json:"customerId" validate:"required"`
	DocumentDate time.Time     `json:"documentDate" validate:"required"`
	DueDate      *time.Time    `json:"dueDate,omitempty"`
	Currency     string        `json:"currency" validate:"omitempty,len=3"`
	Notes        *string       `json:"notes,omitempty"`
	Lines        []LineRequest `json:"lines" validate:"dive"`
}

// UpdateLinesRequest replaces the full line set of an editable document.
type UpdateLinesRequest struct {
	Lines []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// UpdateHeaderRequest mutates editable header fields. Type, Number,
// Currency and provenance are immutable and intentionally absent.
type UpdateHeaderRequest struct {
	DocumentDate *time.Time `json:"documentDate,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

// SetStatusRequest requests a status transition.
type SetStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// ConvertRequest converts a document into targetType.
type ConvertRequest struct {
	TargetType DocType `json:"targetType" validate:"required"`
}
