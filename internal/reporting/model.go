package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/ledgerkit/internal/documents"
)

// Filter narrows document listings. All set fields combine with AND
// semantics; Search matches the document number and customer name.
type Filter struct {
	DateFrom   *time.Time         `json:"dateFrom,omitempty"`
	DateTo     *time.Time         `json:"dateTo,omitempty"`
	Type       *documents.DocType `json:"type,omitempty"`
	Status     *documents.Status  `json:"status,omitempty"`
	CustomerID *uuid.UUID         `json:"customerId,omitempty"`
	Search     string             `json:"search,omitempty"`
	Page       int                `json:"page,omitempty"`
	PerPage    int                `json:"perPage,omitempty"`
}

// DocumentSummary is the read-path projection of a sales document.
type DocumentSummary struct {
	ID              uuid.UUID         `json:"id"`
	Type            documents.DocType `json:"type"`
	Number          string            `json:"number"`
	Status          documents.Status  `json:"status"`
	CustomerID      uuid.UUID         `json:"customerId"`
	CustomerName    string            `json:"customerName"`
	DocumentDate    time.Time         `json:"documentDate"`
	DueDate         *time.Time        `json:"dueDate,omitempty"`
	Currency        string            `json:"currency"`
	TotalAmount     decimal.Decimal   `json:"totalAmount"`
	PaidAmount      decimal.Decimal   `json:"paidAmount"`
	RemainingAmount decimal.Decimal   `json:"remainingAmount"`
}

// MonthGroup is one month of the sales-documents overview, ordered
// newest first.
type MonthGroup struct {
	Month       string            `json:"month"`
	Documents   []DocumentSummary `json:"documents"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
}

// AgingBuckets summarizes outstanding balances by days overdue.
type AgingBuckets struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"bucket30"`
	Bucket60  decimal.Decimal `json:"bucket60"`
	Bucket90  decimal.Decimal `json:"bucket90"`
	Bucket120 decimal.Decimal `json:"bucket120"`
}
