package documents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/ledgerkit/internal/catalog"
	"github.com/ledgerkit/ledgerkit/internal/documents/money"
	"github.com/ledgerkit/ledgerkit/internal/parties"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// memoryDocRepo mirrors the pgx repository's locking contract with a
// per-document mutex and a bounded TryLock.
type memoryDocRepo struct {
	docs  map[uuid.UUID]*SalesDocument
	seq   map[string]int64
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newMemoryDocRepo() *memoryDocRepo {
	return &memoryDocRepo{
		docs:  make(map[uuid.UUID]*SalesDocument),
		seq:   make(map[string]int64),
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *memoryDocRepo) lockFor(id uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[id]
	if !ok {
		m = &sync.Mutex{}
		r.locks[id] = m
	}
	return m
}

func (r *memoryDocRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	tx := &memoryDocTx{memoryDocRepo: r}
	defer tx.release()
	return fn(ctx, tx)
}

func (r *memoryDocRepo) Lock(ctx context.Context, id uuid.UUID) error {
	return errors.New("lock requires a transaction")
}

// memoryDocTx holds transaction-scoped locks, released when the
// enclosing WithTx returns.
type memoryDocTx struct {
	*memoryDocRepo
	held []*sync.Mutex
}

func (t *memoryDocTx) Lock(ctx context.Context, id uuid.UUID) error {
	m := t.lockFor(id)
	deadline := time.Now().Add(100 * time.Millisecond)
	for !m.TryLock() {
		if time.Now().After(deadline) {
			return &ConcurrencyConflictError{DocumentID: id}
		}
		time.Sleep(time.Millisecond)
	}
	t.held = append(t.held, m)
	return nil
}

func (t *memoryDocTx) release() {
	for _, m := range t.held {
		m.Unlock()
	}
	t.held = nil
}

func (r *memoryDocRepo) Get(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*SalesDocument, error) {
	doc, ok := r.docs[id]
	if !ok || doc.TenantID != tenant.TenantID {
		return nil, shared.ErrNotFound
	}
	copied := *doc
	copied.Lines = append([]DocumentLine(nil), doc.Lines...)
	return &copied, nil
}

func (r *memoryDocRepo) Create(ctx context.Context, tenant shared.TenantContext, doc *SalesDocument) error {
	copied := *doc
	copied.Lines = append([]DocumentLine(nil), doc.Lines...)
	r.docs[doc.ID] = &copied
	return nil
}

func (r *memoryDocRepo) UpdateHeader(ctx context.Context, tenant shared.TenantContext, doc *SalesDocument) error {
	stored, ok := r.docs[doc.ID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.DocumentDate = doc.DocumentDate
	stored.DueDate = doc.DueDate
	stored.Notes = doc.Notes
	return nil
}

func (r *memoryDocRepo) ReplaceLines(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, lines []DocumentLine) error {
	stored, ok := r.docs[docID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.Lines = append([]DocumentLine(nil), lines...)
	return nil
}

func (r *memoryDocRepo) UpdateTotals(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, totals money.DocumentTotals) error {
	stored, ok := r.docs[docID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.SubTotal = totals.Subtotal
	stored.VATAmount = totals.VATAmount
	stored.TotalAmount = totals.Total
	return nil
}

func (r *memoryDocRepo) UpdateStatus(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, status Status) error {
	stored, ok := r.docs[docID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.Status = status
	return nil
}

func (r *memoryDocRepo) HasConversion(ctx context.Context, tenant shared.TenantContext, sourceID uuid.UUID, targetType DocType) (bool, error) {
	for _, doc := range r.docs {
		if doc.SourceDocumentID != nil && *doc.SourceDocumentID == sourceID &&
			doc.Type == targetType && doc.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryDocRepo) GenerateNumber(ctx context.Context, tenant shared.TenantContext, docType DocType, date time.Time) (string, error) {
	key := tenant.TenantID + ":" + string(docType) + ":" + date.Format("200601")
	r.seq[key]++
	return fmt.Sprintf("%s-%s-%04d", numberPrefix[docType], date.Format("0601"), r.seq[key]), nil
}

func (r *memoryDocRepo) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]OverdueCandidate, error) {
	var out []OverdueCandidate
	for _, doc := range r.docs {
		if doc.Type == DocTypeInvoice && doc.Status == StatusSent &&
			doc.DueDate != nil && doc.DueDate.Before(asOf) {
			out = append(out, OverdueCandidate{TenantID: doc.TenantID, ID: doc.ID})
		}
	}
	return out, nil
}

type fakeCatalog struct {
	items map[uuid.UUID]*catalog.Item
}

func (f *fakeCatalog) GetItem(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*catalog.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return item, nil
}

type fakeParties struct {
	parties map[uuid.UUID]*parties.Party
}

func (f *fakeParties) GetParty(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*parties.Party, error) {
	party, ok := f.parties[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return party, nil
}

type fakeInvalidator struct {
	calls map[string]int
}

func newFakeInvalidator() *fakeInvalidator {
	return &fakeInvalidator{calls: make(map[string]int)}
}

func (f *fakeInvalidator) InvalidateTenant(ctx context.Context, tenant shared.TenantContext) {
	f.calls[tenant.TenantID]++
}

type fixture struct {
	repo       *memoryDocRepo
	service    *Service
	tenant     shared.TenantContext
	customerID uuid.UUID
	itemID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	customerID := uuid.New()
	itemID := uuid.New()

	repo := newMemoryDocRepo()
	cat := &fakeCatalog{items: map[uuid.UUID]*catalog.Item{
		itemID: {ID: itemID, Name: "Consulting hour", SellPrice: decimal.NewFromInt(100), Active: true},
	}}
	dir := &fakeParties{parties: map[uuid.UUID]*parties.Party{
		customerID: {ID: customerID, Kind: parties.KindCustomer, Name: "Acme", PaymentTermsDays: 30},
	}}
	service := NewService(repo, cat, dir, decimal.NewFromInt(17), "ILS")

	return &fixture{
		repo:       repo,
		service:    service,
		tenant:     shared.TenantContext{TenantID: "t1"},
		customerID: customerID,
		itemID:     itemID,
	}
}

func (f *fixture) createDoc(t *testing.T, docType DocType, lines ...LineRequest) *SalesDocument {
	t.Helper()
	doc, err := f.service.Create(context.Background(), f.tenant, CreateDocumentRequest{
		Type:         docType,
		CustomerID:   f.customerID,
		DocumentDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Currency:     "ILS",
		Lines:        lines,
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) line(qty int64) LineRequest {
	return LineRequest{ItemID: f.itemID, Quantity: decimal.NewFromInt(qty)}
}

func TestCreateDocumentDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	discount := decimal.NewFromInt(10)
	doc, err := f.service.Create(ctx, f.tenant, CreateDocumentRequest{
		Type:         DocTypeQuote,
		CustomerID:   f.customerID,
		DocumentDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Currency:     "ils",
		Lines: []LineRequest{
			{ItemID: f.itemID, Quantity: decimal.NewFromInt(3), DiscountPercent: discount},
		},
	})
	require.NoError(t, err)

	require.Equal(t, StatusDraft, doc.Status)
	require.Equal(t, "ILS", doc.Currency)
	require.Equal(t, "QT-2603-0001", doc.Number)
	require.Len(t, doc.Lines, 1)

	line := doc.Lines[0]
	// Price and description default from the catalog, tax rate from config.
	require.True(t, line.UnitPrice.Equal(decimal.NewFromInt(100)))
	require.Equal(t, "Consulting hour", *line.Description)
	require.True(t, line.TaxRate.Equal(decimal.NewFromInt(17)))
	require.Equal(t, 1, line.LineOrder)

	// 3 * 100 - 10% = 270; tax 45.9; total 315.9
	require.True(t, line.LineSubtotal.Equal(decimal.RequireFromString("270")))
	require.True(t, line.LineTax.Equal(decimal.RequireFromString("45.9")))
	require.True(t, doc.TotalAmount.Equal(decimal.RequireFromString("315.90")), "got %s", doc.TotalAmount)

	// Due date defaults from customer payment terms.
	require.NotNil(t, doc.DueDate)
	require.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), *doc.DueDate)
}

func TestCreateRejectsReceiptAndBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, f.tenant, CreateDocumentRequest{
		Type:         DocTypeReceipt,
		CustomerID:   f.customerID,
		DocumentDate: time.Now(),
		Currency:     "ILS",
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.service.Create(ctx, f.tenant, CreateDocumentRequest{
		Type:         DocTypeQuote,
		CustomerID:   f.customerID,
		DocumentDate: time.Now(),
		Currency:     "XXZ",
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.service.Create(ctx, shared.TenantContext{}, CreateDocumentRequest{
		Type:         DocTypeQuote,
		CustomerID:   f.customerID,
		DocumentDate: time.Now(),
		Currency:     "ILS",
	})
	require.ErrorIs(t, err, shared.ErrTenantRequired)

	// Born-final types must carry lines at creation.
	_, err = f.service.Create(ctx, f.tenant, CreateDocumentRequest{
		Type:         DocTypeTaxInvoiceReceipt,
		CustomerID:   f.customerID,
		DocumentDate: time.Now(),
		Currency:     "ILS",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestNumberingIsSequentialPerTypeAndMonth(t *testing.T) {
	f := newFixture(t)

	first := f.createDoc(t, DocTypeQuote, f.line(1))
	second := f.createDoc(t, DocTypeQuote, f.line(1))
	invoice := f.createDoc(t, DocTypeInvoice, f.line(1))

	require.Equal(t, "QT-2603-0001", first.Number)
	require.Equal(t, "QT-2603-0002", second.Number)
	require.Equal(t, "INV-2603-0001", invoice.Number)
}

func TestUpdateLinesRecomputesTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	price := decimal.NewFromInt(200)
	updated, err := f.service.UpdateLines(ctx, f.tenant, doc.ID, UpdateLinesRequest{
		Lines: []LineRequest{
			{ItemID: f.itemID, Quantity: decimal.NewFromInt(2), UnitPrice: &price},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	// 2 * 200 = 400; 17% tax = 68
	require.True(t, updated.SubTotal.Equal(decimal.RequireFromString("400.00")))
	require.True(t, updated.VATAmount.Equal(decimal.RequireFromString("68.00")))
	require.True(t, updated.TotalAmount.Equal(decimal.RequireFromString("468.00")))
}

func TestUpdateLinesRejectedOutsideEditableStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	_, err := f.service.SetStatus(ctx, f.tenant, doc.ID, StatusSent)
	require.NoError(t, err)

	_, err = f.service.UpdateLines(ctx, f.tenant, doc.ID, UpdateLinesRequest{
		Lines: []LineRequest{f.line(5)},
	})
	var editErr *EditNotAllowedError
	require.ErrorAs(t, err, &editErr)
	require.Equal(t, "ILLEGAL_TRANSITION", editErr.Kind())
}

func TestUpdateHeaderMutatesOnlyEditableFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	notes := "net 30"
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	updated, err := f.service.UpdateHeader(ctx, f.tenant, doc.ID, UpdateHeaderRequest{
		DueDate: &due,
		Notes:   &notes,
	})
	require.NoError(t, err)
	require.Equal(t, notes, *updated.Notes)
	require.Equal(t, due, *updated.DueDate)
	require.Equal(t, doc.Number, updated.Number)
	require.Equal(t, doc.Currency, updated.Currency)
}

func TestSetStatusRequiresLinesToLeaveDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote)

	_, err := f.service.SetStatus(ctx, f.tenant, doc.ID, StatusSent)
	require.ErrorIs(t, err, shared.ErrValidation)

	// Cancelling an empty draft is fine.
	cancelled, err := f.service.Cancel(ctx, f.tenant, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
}

func TestCancelRejectedWithPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeInvoice, f.line(1))

	_, err := f.service.SetStatus(ctx, f.tenant, doc.ID, StatusSent)
	require.NoError(t, err)

	f.repo.docs[doc.ID].PaidAmount = decimal.NewFromInt(50)

	_, err = f.service.Cancel(ctx, f.tenant, doc.ID)
	var cancelErr *CancelWithPaymentsError
	require.ErrorAs(t, err, &cancelErr)
	require.Equal(t, "CANCEL_WITH_PAYMENTS", cancelErr.Kind())
}

func TestDuplicateProducesIndependentDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(2))

	_, err := f.service.SetStatus(ctx, f.tenant, doc.ID, StatusSent)
	require.NoError(t, err)

	dup, err := f.service.Duplicate(ctx, f.tenant, doc.ID)
	require.NoError(t, err)
	require.NotEqual(t, doc.ID, dup.ID)
	require.NotEqual(t, doc.Number, dup.Number)
	require.Equal(t, StatusDraft, dup.Status)
	require.Nil(t, dup.SourceDocumentID)
	require.True(t, dup.TotalAmount.Equal(doc.TotalAmount))
	require.True(t, dup.PaidAmount.IsZero())
}

func TestDuplicateRejectsReceiptTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeTaxInvoiceReceipt, f.line(1))

	_, err := f.service.Duplicate(ctx, f.tenant, doc.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDefaultsCurrencyFromConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.service.Create(ctx, f.tenant, CreateDocumentRequest{
		Type:         DocTypeQuote,
		CustomerID:   f.customerID,
		DocumentDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines:        []LineRequest{f.line(1)},
	})
	require.NoError(t, err)
	require.Equal(t, "ILS", doc.Currency)
}

func TestWritesInvalidateAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := newFakeInvalidator()
	f.service.SetInvalidator(inv)

	doc := f.createDoc(t, DocTypeQuote, f.line(1))
	require.Equal(t, 1, inv.calls[f.tenant.TenantID])

	_, err := f.service.UpdateLines(ctx, f.tenant, doc.ID, UpdateLinesRequest{
		Lines: []LineRequest{f.line(2)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, inv.calls[f.tenant.TenantID])

	_, err = f.service.SetStatus(ctx, f.tenant, doc.ID, StatusSent)
	require.NoError(t, err)
	require.Equal(t, 3, inv.calls[f.tenant.TenantID])

	_, err = f.service.SetStatus(ctx, f.tenant, doc.ID, StatusAccepted)
	require.NoError(t, err)
	_, err = f.service.Convert(ctx, f.tenant, doc.ID, DocTypeSalesOrder)
	require.NoError(t, err)
	require.Equal(t, 5, inv.calls[f.tenant.TenantID])

	// Failed writes must not drop cached aggregates.
	_, err = f.service.UpdateLines(ctx, f.tenant, doc.ID, UpdateLinesRequest{
		Lines: []LineRequest{f.line(3)},
	})
	require.Error(t, err)
	require.Equal(t, 5, inv.calls[f.tenant.TenantID])
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	_, err := f.service.Get(ctx, shared.TenantContext{TenantID: "other"}, doc.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
