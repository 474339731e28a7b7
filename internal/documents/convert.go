package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Convert creates a document of targetType from an existing source,
// copying its lines verbatim and recording the provenance edge. The
// source and the new document commit in one transaction: a converted
// quote retires to Converted, additive conversions (sales order into
// delivery note or invoice) leave the source untouched. Conversion is
// one-shot per (source, targetType) pair.
func (s *Service) Convert(ctx context.Context, tenant shared.TenantContext, sourceID uuid.UUID, targetType DocType) (*SalesDocument, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	if !targetType.Valid() {
		return nil, errors.New("documents: unknown target type")
	}

	var newID uuid.UUID
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Lock(ctx, sourceID); err != nil {
			var conflict *ConcurrencyConflictError
			if errors.As(err, &conflict) {
				return &DocumentLockedError{DocumentID: sourceID}
			}
			return err
		}
		source, err := repo.Get(ctx, tenant, sourceID)
		if err != nil {
			return err
		}
		if source.Status == StatusConverted {
			return &AlreadyConvertedError{SourceID: sourceID, TargetType: targetType}
		}
		if !CanConvert(source.Type, source.Status, targetType) {
			return &ConversionNotAllowedError{
				DocType:    source.Type,
				Status:     source.Status,
				TargetType: targetType,
			}
		}
		converted, err := repo.HasConversion(ctx, tenant, sourceID, targetType)
		if err != nil {
			return err
		}
		if converted {
			return &AlreadyConvertedError{SourceID: sourceID, TargetType: targetType}
		}

		lines, totals, err := s.recomputeLines(source.Lines)
		if err != nil {
			return err
		}

		now := time.Now()
		sourceType := source.Type
		target := &SalesDocument{
			ID:                 uuid.New(),
			TenantID:           tenant.TenantID,
			Type:               targetType,
			Status:             InitialStatus(targetType),
			CustomerID:         source.CustomerID,
			DocumentDate:       now,
			Currency:           source.Currency,
			Lines:              lines,
			Notes:              source.Notes,
			SubTotal:           totals.Subtotal,
			VATAmount:          totals.VATAmount,
			TotalAmount:        totals.Total,
			PaidAmount:         decimal.Zero,
			SourceDocumentID:   &source.ID,
			SourceDocumentType: &sourceType,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		target.DueDate = s.defaultDueDate(ctx, tenant, targetType, source.CustomerID, now)

		number, err := repo.GenerateNumber(ctx, tenant, targetType, now)
		if err != nil {
			return err
		}
		target.Number = number

		if err := repo.Create(ctx, tenant, target); err != nil {
			return err
		}
		newID = target.ID

		if source.Type == DocTypeQuote {
			if err := Transition(DocTypeQuote, source.Status, StatusConverted); err != nil {
				return err
			}
			return repo.UpdateStatus(ctx, tenant, source.ID, StatusConverted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return s.repo.Get(ctx, tenant, newID)
}

// defaultDueDate applies the customer's payment terms to invoice-like
// targets. A missing party record just leaves the due date empty.
func (s *Service) defaultDueDate(ctx context.Context, tenant shared.TenantContext, targetType DocType, customerID uuid.UUID, from time.Time) *time.Time {
	if targetType != DocTypeInvoice && targetType != DocTypePurchaseInvoice {
		return nil
	}
	customer, err := s.parties.GetParty(ctx, tenant, customerID)
	if err != nil || customer.PaymentTermsDays <= 0 {
		return nil
	}
	due := from.AddDate(0, 0, customer.PaymentTermsDays)
	return &due
}
