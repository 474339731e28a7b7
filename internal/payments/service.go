package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/ledgerkit/internal/documents"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// payable lists the document types the ledger accepts payments against.
var payable = map[documents.DocType]bool{
	documents.DocTypeInvoice:           true,
	documents.DocTypePurchaseInvoice:   true,
	documents.DocTypeTaxInvoiceReceipt: true,
}

// Service is the payment reconciliation ledger. All commands serialize
// on the owning document's lock so racing payments cannot both fill the
// last remaining balance.
type Service struct {
	repo        Repository
	invalidator documents.AggregateInvalidator
}

// NewService builds the ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetInvalidator attaches the aggregation cache invalidation hook.
// Ledger commands call it after their transaction commits.
func (s *Service) SetInvalidator(inv documents.AggregateInvalidator) {
	s.invalidator = inv
}

func (s *Service) invalidate(ctx context.Context, tenant shared.TenantContext) {
	if s.invalidator != nil {
		s.invalidator.InvalidateTenant(ctx, tenant)
	}
}

// RecordPayment writes one payment record and advances the document's
// paidAmount atomically. Filling the balance moves the document to its
// paid terminal status.
func (s *Service) RecordPayment(ctx context.Context, tenant shared.TenantContext, req RecordPaymentRequest) (*PaymentRecord, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &InvalidPaymentError{Reason: "amount must be positive"}
	}
	if !req.Method.Valid() {
		return nil, &InvalidPaymentError{Reason: fmt.Sprintf("unknown method %q", req.Method)}
	}

	var record *PaymentRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.LockDocument(ctx, req.DocumentID); err != nil {
			return err
		}
		doc, err := repo.GetDocument(ctx, tenant, req.DocumentID)
		if err != nil {
			return err
		}
		if !payable[doc.Type] {
			return &InvalidPaymentError{Reason: fmt.Sprintf("%s does not accept payments", doc.Type)}
		}
		switch doc.Status {
		case documents.StatusCancelled:
			return &InvalidPaymentError{Reason: "document is cancelled"}
		case documents.StatusDraft:
			return &InvalidPaymentError{Reason: "document has not been issued"}
		}

		remaining := doc.RemainingAmount()
		if req.Amount.GreaterThan(remaining) {
			return &OverpaymentError{DocumentID: doc.ID, Remaining: remaining, Amount: req.Amount}
		}

		record = &PaymentRecord{
			ID:              uuid.New(),
			TenantID:        tenant.TenantID,
			DocumentID:      doc.ID,
			Amount:          req.Amount,
			Method:          req.Method,
			Date:            req.Date,
			ReferenceNumber: req.ReferenceNumber,
			CreatedAt:       time.Now(),
		}
		if err := repo.CreateRecord(ctx, tenant, record); err != nil {
			return err
		}

		paid := doc.PaidAmount.Add(req.Amount)
		if err := repo.UpdateDocumentPayment(ctx, tenant, doc.ID, paid); err != nil {
			return err
		}

		if paid.Equal(doc.TotalAmount) {
			if terminal, ok := documents.PaidTerminal(doc.Type); ok {
				if err := documents.Transition(doc.Type, doc.Status, terminal); err != nil {
					return err
				}
				if err := repo.UpdateDocumentStatus(ctx, tenant, doc.ID, terminal); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return record, nil
}

// ReversePayment writes a compensating negative record for an existing
// payment and decrements the document's paidAmount. The document status
// never moves backward.
func (s *Service) ReversePayment(ctx context.Context, tenant shared.TenantContext, paymentID uuid.UUID) (*PaymentRecord, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}

	var reversal *PaymentRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		original, err := repo.GetRecord(ctx, tenant, paymentID)
		if err != nil {
			return err
		}
		if original.ReversalOf != nil {
			return &InvalidPaymentError{Reason: "cannot reverse a reversal record"}
		}
		if err := repo.LockDocument(ctx, original.DocumentID); err != nil {
			return err
		}

		existing, err := repo.ListByDocument(ctx, tenant, original.DocumentID)
		if err != nil {
			return err
		}
		for _, rec := range existing {
			if rec.ReversalOf != nil && *rec.ReversalOf == paymentID {
				return &InvalidPaymentError{Reason: "payment already reversed"}
			}
		}

		doc, err := repo.GetDocument(ctx, tenant, original.DocumentID)
		if err != nil {
			return err
		}

		reversal = &PaymentRecord{
			ID:         uuid.New(),
			TenantID:   tenant.TenantID,
			DocumentID: original.DocumentID,
			Amount:     original.Amount.Neg(),
			Method:     original.Method,
			Date:       time.Now(),
			ReversalOf: &original.ID,
			CreatedAt:  time.Now(),
		}
		if err := repo.CreateRecord(ctx, tenant, reversal); err != nil {
			return err
		}
		return repo.UpdateDocumentPayment(ctx, tenant, doc.ID, doc.PaidAmount.Sub(original.Amount))
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return reversal, nil
}

// ListPayments returns the ledger entries for one document.
func (s *Service) ListPayments(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID) ([]PaymentRecord, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.ListByDocument(ctx, tenant, docID)
}

// GenerateReceipt produces a Receipt document covering the invoice's
// not-yet-receipted payments. The receipt references the invoice through
// the provenance edge and the covered payment records through their
// receiptId.
func (s *Service) GenerateReceipt(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID) (*documents.SalesDocument, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}

	var receipt *documents.SalesDocument
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.LockDocument(ctx, docID); err != nil {
			return err
		}
		doc, err := repo.GetDocument(ctx, tenant, docID)
		if err != nil {
			return err
		}
		if !documents.CanGenerateReceipt(doc.Type, doc.Status) {
			return &InvalidPaymentError{Reason: fmt.Sprintf("%s in status %s cannot be receipted", doc.Type, doc.Status)}
		}
		if !doc.PaidAmount.IsPositive() {
			return &NothingToReceiptError{DocumentID: docID}
		}

		records, err := repo.ListByDocument(ctx, tenant, docID)
		if err != nil {
			return err
		}
		var covered []uuid.UUID
		total := decimal.Zero
		for _, rec := range records {
			if rec.ReceiptID != nil {
				continue
			}
			covered = append(covered, rec.ID)
			total = total.Add(rec.Amount)
		}
		if len(covered) == 0 || !total.IsPositive() {
			return &NothingToReceiptError{DocumentID: docID}
		}

		now := time.Now()
		sourceType := doc.Type
		receipt = &documents.SalesDocument{
			ID:                 uuid.New(),
			TenantID:           tenant.TenantID,
			Type:               documents.DocTypeReceipt,
			Status:             documents.StatusFinal,
			CustomerID:         doc.CustomerID,
			DocumentDate:       now,
			Currency:           doc.Currency,
			SubTotal:           total,
			VATAmount:          decimal.Zero,
			TotalAmount:        total,
			PaidAmount:         total,
			SourceDocumentID:   &doc.ID,
			SourceDocumentType: &sourceType,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		number, err := repo.GenerateNumber(ctx, tenant, documents.DocTypeReceipt, now)
		if err != nil {
			return err
		}
		receipt.Number = number

		if err := repo.CreateDocument(ctx, tenant, receipt); err != nil {
			return err
		}
		return repo.MarkReceipted(ctx, tenant, covered, receipt.ID)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return receipt, nil
}
