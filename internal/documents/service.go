package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/ledgerkit/ledgerkit/internal/catalog"
	"github.com/ledgerkit/ledgerkit/internal/documents/money"
	"github.com/ledgerkit/ledgerkit/internal/parties"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// CatalogPort resolves catalog items for line defaults.
type CatalogPort interface {
	GetItem(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*catalog.Item, error)
}

// PartyPort resolves customers for due-date defaults.
type PartyPort interface {
	GetParty(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*parties.Party, error)
}

// AggregateInvalidator drops cached read-path aggregations for a tenant.
// Write commands call it after their transaction commits.
type AggregateInvalidator interface {
	InvalidateTenant(ctx context.Context, tenant shared.TenantContext)
}

// Service implements the document store commands: creation, header and
// line edits, status transitions, duplication. Conversion lives in
// convert.go on the same type.
type Service struct {
	repo            Repository
	catalog         CatalogPort
	parties         PartyPort
	defaultTaxRate  decimal.Decimal
	defaultCurrency string
	invalidator     AggregateInvalidator
}

// NewService builds the document service. defaultTaxRate is the
// jurisdiction VAT percentage applied to lines without an explicit rate;
// defaultCurrency fills requests that omit a currency code.
func NewService(repo Repository, catalogPort CatalogPort, partyPort PartyPort, defaultTaxRate decimal.Decimal, defaultCurrency string) *Service {
	return &Service{
		repo:            repo,
		catalog:         catalogPort,
		parties:         partyPort,
		defaultTaxRate:  defaultTaxRate,
		defaultCurrency: defaultCurrency,
	}
}

// SetInvalidator attaches the aggregation cache invalidation hook. A nil
// or unset invalidator is ignored.
func (s *Service) SetInvalidator(inv AggregateInvalidator) {
	s.invalidator = inv
}

func (s *Service) invalidate(ctx context.Context, tenant shared.TenantContext) {
	if s.invalidator != nil {
		s.invalidator.InvalidateTenant(ctx, tenant)
	}
}

// Create creates a document directly in its type's initial status.
// Receipts are only ever produced by the payment ledger.
func (s *Service) Create(ctx context.Context, tenant shared.TenantContext, req CreateDocumentRequest) (*SalesDocument, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", shared.ErrValidation, req.Type)
	}
	if req.Type == DocTypeReceipt {
		return nil, fmt.Errorf("%w: receipts are generated from payments, not created directly", shared.ErrValidation)
	}

	currencyCode := req.Currency
	if currencyCode == "" {
		currencyCode = s.defaultCurrency
	}
	code, err := currency.ParseISO(strings.ToUpper(currencyCode))
	if err != nil {
		return nil, fmt.Errorf("%w: unknown currency %q", shared.ErrValidation, currencyCode)
	}

	customer, err := s.parties.GetParty(ctx, tenant, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	status := InitialStatus(req.Type)
	if status == StatusFinal && len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: %s requires at least one line", shared.ErrValidation, req.Type)
	}

	lines, totals, err := s.buildLines(ctx, tenant, req.Lines)
	if err != nil {
		return nil, err
	}

	dueDate := req.DueDate
	if dueDate == nil && customer.PaymentTermsDays > 0 {
		due := req.DocumentDate.AddDate(0, 0, customer.PaymentTermsDays)
		dueDate = &due
	}

	now := time.Now()
	doc := &SalesDocument{
		ID:           uuid.New(),
		TenantID:     tenant.TenantID,
		Type:         req.Type,
		Status:       status,
		CustomerID:   req.CustomerID,
		DocumentDate: req.DocumentDate,
		DueDate:      dueDate,
		Currency:     code.String(),
		Lines:        lines,
		Notes:        req.Notes,
		SubTotal:     totals.Subtotal,
		VATAmount:    totals.VATAmount,
		TotalAmount:  totals.Total,
		PaidAmount:   decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.GenerateNumber(ctx, tenant, doc.Type, doc.DocumentDate)
		if err != nil {
			return err
		}
		doc.Number = number
		return repo.Create(ctx, tenant, doc)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return s.repo.Get(ctx, tenant, doc.ID)
}

// Get returns one document with its lines.
func (s *Service) Get(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*SalesDocument, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.Get(ctx, tenant, id)
}

// UpdateLines replaces the document's line set and recomputes totals
// from the raw inputs. Only editable statuses admit line changes.
func (s *Service) UpdateLines(ctx context.Context, tenant shared.TenantContext, id uuid.UUID, req UpdateLinesRequest) (*SalesDocument, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Lock(ctx, id); err != nil {
			// A conversion in flight holds the same lock; edits must not
			// interleave with it.
			var conflict *ConcurrencyConflictError
			if errors.As(err, &conflict) {
				return &DocumentLockedError{DocumentID: id}
			}
			return err
		}
		doc, err := repo.Get(ctx, tenant, id)
		if err != nil {
			return err
		}
		if !CanEdit(doc.Type, doc.Status) {
			return &EditNotAllowedError{DocType: doc.Type, Status: doc.Status}
		}
		lines, totals, err := s.buildLines(ctx, tenant, req.Lines)
		if err != nil {
			return err
		}
		if err := repo.ReplaceLines(ctx, tenant, id, lines); err != nil {
			return err
		}
		return repo.UpdateTotals(ctx, tenant, id, totals)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return s.repo.Get(ctx, tenant, id)
}

// UpdateHeader mutates the editable header fields.
func (s *Service) UpdateHeader(ctx context.Context, tenant shared.TenantContext, id uuid.UUID, req UpdateHeaderRequest) (*SalesDocument, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Lock(ctx, id); err != nil {
			var conflict *ConcurrencyConflictError
			if errors.As(err, &conflict) {
				return &DocumentLockedError{DocumentID: id}
			}
			return err
		}
		doc, err := repo.Get(ctx, tenant, id)
		if err != nil {
			return err
		}
		if !CanEdit(doc.Type, doc.Status) {
			return &EditNotAllowedError{DocType: doc.Type, Status: doc.Status}
		}
		if req.DocumentDate != nil {
			doc.DocumentDate = *req.DocumentDate
		}
		if req.DueDate != nil {
			doc.DueDate = req.DueDate
		}
		if req.Notes != nil {
			doc.Notes = req.Notes
		}
		return repo.UpdateHeader(ctx, tenant, doc)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return s.repo.Get(ctx, tenant, id)
}

// SetStatus moves the document along its transition table. Leaving the
// initial editable state requires at least one line; cancelling a
// document with payments is rejected.
func (s *Service) SetStatus(ctx context.Context, tenant shared.TenantContext, id uuid.UUID, to Status) (*SalesDocument, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Lock(ctx, id); err != nil {
			return err
		}
		doc, err := repo.Get(ctx, tenant, id)
		if err != nil {
			return err
		}
		return s.applyTransition(ctx, repo, tenant, doc, to)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return s.repo.Get(ctx, tenant, id)
}

// Cancel soft-deletes the document through the Cancelled status.
func (s *Service) Cancel(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*SalesDocument, error) {
	return s.SetStatus(ctx, tenant, id, StatusCancelled)
}

// applyTransition enforces the transition guards and persists the new
// status. Callers hold the document lock.
func (s *Service) applyTransition(ctx context.Context, repo Repository, tenant shared.TenantContext, doc *SalesDocument, to Status) error {
	if to == StatusCancelled && doc.PaidAmount.IsPositive() {
		return &CancelWithPaymentsError{DocumentID: doc.ID}
	}
	if err := Transition(doc.Type, doc.Status, to); err != nil {
		return err
	}
	if CanEdit(doc.Type, doc.Status) && to != StatusCancelled && len(doc.Lines) == 0 {
		return fmt.Errorf("%w: document requires at least one line before leaving %s", shared.ErrValidation, doc.Status)
	}
	return repo.UpdateStatus(ctx, tenant, doc.ID, to)
}

// Duplicate copies a document into a new, unrelated document of the same
// type in its initial status. No provenance edge is recorded and the
// source's status does not matter.
func (s *Service) Duplicate(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*SalesDocument, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	source, err := s.repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if source.Type == DocTypeReceipt || source.Type == DocTypeTaxInvoiceReceipt {
		return nil, fmt.Errorf("%w: %s documents cannot be duplicated", shared.ErrValidation, source.Type)
	}

	lines, totals, err := s.recomputeLines(source.Lines)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	copyDoc := &SalesDocument{
		ID:           uuid.New(),
		TenantID:     tenant.TenantID,
		Type:         source.Type,
		Status:       InitialStatus(source.Type),
		CustomerID:   source.CustomerID,
		DocumentDate: source.DocumentDate,
		DueDate:      source.DueDate,
		Currency:     source.Currency,
		Lines:        lines,
		Notes:        source.Notes,
		SubTotal:     totals.Subtotal,
		VATAmount:    totals.VATAmount,
		TotalAmount:  totals.Total,
		PaidAmount:   decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.GenerateNumber(ctx, tenant, copyDoc.Type, copyDoc.DocumentDate)
		if err != nil {
			return err
		}
		copyDoc.Number = number
		return repo.Create(ctx, tenant, copyDoc)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	return s.repo.Get(ctx, tenant, copyDoc.ID)
}

// buildLines resolves catalog defaults and computes derived amounts for
// caller-supplied line inputs.
func (s *Service) buildLines(ctx context.Context, tenant shared.TenantContext, reqs []LineRequest) ([]DocumentLine, money.DocumentTotals, error) {
	lines := make([]DocumentLine, 0, len(reqs))
	amounts := make([]money.LineAmounts, 0, len(reqs))
	for i, req := range reqs {
		item, err := s.catalog.GetItem(ctx, tenant, req.ItemID)
		if err != nil {
			return nil, money.DocumentTotals{}, fmt.Errorf("verify item %s: %w", req.ItemID, err)
		}

		unitPrice := item.SellPrice
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		description := req.Description
		if description == nil {
			name := item.Name
			description = &name
		}
		taxRate := s.defaultTaxRate
		if req.TaxRate != nil {
			taxRate = *req.TaxRate
		}

		computed, err := money.ComputeLine(req.Quantity, unitPrice, req.DiscountPercent, taxRate)
		if err != nil {
			return nil, money.DocumentTotals{}, err
		}

		order := req.LineOrder
		if order == 0 {
			order = i + 1
		}
		lines = append(lines, DocumentLine{
			ID:              uuid.New(),
			ItemID:          req.ItemID,
			Description:     description,
			Quantity:        req.Quantity,
			UnitPrice:       unitPrice,
			DiscountPercent: req.DiscountPercent,
			TaxRate:         taxRate,
			DiscountAmount:  computed.DiscountAmount,
			LineSubtotal:    computed.Subtotal,
			LineTax:         computed.Tax,
			LineTotal:       computed.Total,
			LineOrder:       order,
		})
		amounts = append(amounts, computed)
	}
	return lines, money.ComputeDocumentTotals(amounts), nil
}

// recomputeLines rebuilds derived amounts from existing raw line inputs,
// assigning fresh line identities. Stored derived values are never
// trusted.
func (s *Service) recomputeLines(source []DocumentLine) ([]DocumentLine, money.DocumentTotals, error) {
	lines := make([]DocumentLine, 0, len(source))
	amounts := make([]money.LineAmounts, 0, len(source))
	for _, src := range source {
		computed, err := money.ComputeLine(src.Quantity, src.UnitPrice, src.DiscountPercent, src.TaxRate)
		if err != nil {
			return nil, money.DocumentTotals{}, err
		}
		line := src
		line.ID = uuid.New()
		line.DiscountAmount = computed.DiscountAmount
		line.LineSubtotal = computed.Subtotal
		line.LineTax = computed.Tax
		line.LineTotal = computed.Total
		lines = append(lines, line)
		amounts = append(amounts, computed)
	}
	return lines, money.ComputeDocumentTotals(amounts), nil
}
