package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/ledgerkit/internal/documents/money"
	"github.com/ledgerkit/ledgerkit/internal/platform/db"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// OverdueCandidate identifies a sent invoice past its due date.
type OverdueCandidate struct {
	TenantID string
	ID       uuid.UUID
}

// Repository is the document store port. Mutating methods are meant to
// run inside WithTx; Lock serializes commands against one document for
// the remainder of the transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Lock(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*SalesDocument, error)
	Create(ctx context.Context, tenant shared.TenantContext, doc *SalesDocument) error
	UpdateHeader(ctx context.Context, tenant shared.TenantContext, doc *SalesDocument) error
	ReplaceLines(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, lines []DocumentLine) error
	UpdateTotals(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, totals money.DocumentTotals) error
	UpdateStatus(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, status Status) error
	HasConversion(ctx context.Context, tenant shared.TenantContext, sourceID uuid.UUID, targetType DocType) (bool, error)
	GenerateNumber(ctx context.Context, tenant shared.TenantContext, docType DocType, date time.Time) (string, error)
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]OverdueCandidate, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db          dbtx
	pool        *pgxpool.Pool
	inTx        bool
	lockTimeout time.Duration
}

// NewRepository builds the pgx-backed document repository. lockTimeout
// bounds the per-document advisory lock wait.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) Repository {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &repository{db: pool, pool: pool, lockTimeout: lockTimeout}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		repoTx := &repository{db: tx, pool: r.pool, inTx: true, lockTimeout: r.lockTimeout}
		return fn(ctx, repoTx)
	})
}

// Lock takes the document's transaction-scoped advisory lock with a
// bounded wait. Contention past the timeout surfaces as
// ConcurrencyConflictError so callers can retry.
func (r *repository) Lock(ctx context.Context, id uuid.UUID) error {
	if !r.inTx {
		return errors.New("documents: lock requires a transaction")
	}
	timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
	if _, err := r.db.Exec(ctx, timeout); err != nil {
		return fmt.Errorf("documents: set lock timeout: %w", err)
	}
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, shared.DocumentLockKey(id)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return &ConcurrencyConflictError{DocumentID: id}
		}
		return fmt.Errorf("documents: acquire lock: %w", err)
	}
	return nil
}

const documentColumns = `id, tenant_id, doc_type, doc_number, status, customer_id, document_date, due_date,
	currency, notes, subtotal, vat_amount, total_amount, paid_amount,
	source_document_id, source_document_type, created_at, updated_at`

func (r *repository) Get(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*SalesDocument, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM sales_documents WHERE tenant_id = $1 AND id = $2`,
		tenant.TenantID, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("documents: get: %w", err)
	}

	lines, err := r.getLines(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return doc, nil
}

func (r *repository) getLines(ctx context.Context, docID uuid.UUID) ([]DocumentLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, item_id, description, quantity, unit_price, discount_percent, tax_rate,
		       discount_amount, line_subtotal, line_tax, line_total, line_order
		FROM document_lines WHERE document_id = $1 ORDER BY line_order
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("documents: get lines: %w", err)
	}
	defer rows.Close()

	var lines []DocumentLine
	for rows.Next() {
		var line DocumentLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Description, &line.Quantity,
			&line.UnitPrice, &line.DiscountPercent, &line.TaxRate, &line.DiscountAmount,
			&line.LineSubtotal, &line.LineTax, &line.LineTotal, &line.LineOrder); err != nil {
			return nil, fmt.Errorf("documents: scan line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) Create(ctx context.Context, tenant shared.TenantContext, doc *SalesDocument) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sales_documents (id, tenant_id, doc_type, doc_number, status, customer_id,
			document_date, due_date, currency, notes, subtotal, vat_amount, total_amount, paid_amount,
			source_document_id, source_document_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, doc.ID, tenant.TenantID, doc.Type, doc.Number, doc.Status, doc.CustomerID,
		doc.DocumentDate, doc.DueDate, doc.Currency, doc.Notes,
		doc.SubTotal, doc.VATAmount, doc.TotalAmount, doc.PaidAmount,
		doc.SourceDocumentID, doc.SourceDocumentType, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documents: create: %w", err)
	}
	return r.insertLines(ctx, doc.ID, doc.Lines)
}

func (r *repository) insertLines(ctx context.Context, docID uuid.UUID, lines []DocumentLine) error {
	for _, line := range lines {
		_, err := r.db.Exec(ctx, `
			INSERT INTO document_lines (id, document_id, item_id, description, quantity, unit_price,
				discount_percent, tax_rate, discount_amount, line_subtotal, line_tax, line_total, line_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, line.ID, docID, line.ItemID, line.Description, line.Quantity, line.UnitPrice,
			line.DiscountPercent, line.TaxRate, line.DiscountAmount,
			line.LineSubtotal, line.LineTax, line.LineTotal, line.LineOrder)
		if err != nil {
			return fmt.Errorf("documents: insert line: %w", err)
		}
	}
	return nil
}

func (r *repository) UpdateHeader(ctx context.Context, tenant shared.TenantContext, doc *SalesDocument) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales_documents
		SET document_date = $3, due_date = $4, notes = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenant.TenantID, doc.ID, doc.DocumentDate, doc.DueDate, doc.Notes)
	if err != nil {
		return fmt.Errorf("documents: update header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ReplaceLines(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, lines []DocumentLine) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("documents: delete lines: %w", err)
	}
	return r.insertLines(ctx, docID, lines)
}

func (r *repository) UpdateTotals(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, totals money.DocumentTotals) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales_documents
		SET subtotal = $3, vat_amount = $4, total_amount = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenant.TenantID, docID, totals.Subtotal, totals.VATAmount, totals.Total)
	if err != nil {
		return fmt.Errorf("documents: update totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales_documents SET status = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenant.TenantID, docID, status)
	if err != nil {
		return fmt.Errorf("documents: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HasConversion(ctx context.Context, tenant shared.TenantContext, sourceID uuid.UUID, targetType DocType) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sales_documents
			WHERE tenant_id = $1 AND source_document_id = $2 AND doc_type = $3 AND status <> $4
		)
	`, tenant.TenantID, sourceID, targetType, StatusCancelled).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("documents: has conversion: %w", err)
	}
	return exists, nil
}

var numberPrefix = map[DocType]string{
	DocTypeQuote:             "QT",
	DocTypeSalesOrder:        "SO",
	DocTypeDeliveryNote:      "DN",
	DocTypeInvoice:           "INV",
	DocTypePurchaseInvoice:   "PINV",
	DocTypeTaxInvoiceReceipt: "TIR",
	DocTypeReceipt:           "RC",
}

// GenerateNumber assigns the next human-readable number for the type and
// month, unique per tenant and never reused.
func (r *repository) GenerateNumber(ctx context.Context, tenant shared.TenantContext, docType DocType, date time.Time) (string, error) {
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (tenant_id, doc_type, period, seq)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, tenant.TenantID, docType, period).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("documents: generate number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", numberPrefix[docType], date.Format("0601"), seq), nil
}

func (r *repository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]OverdueCandidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT tenant_id, id FROM sales_documents
		WHERE doc_type = $1 AND status = $2 AND due_date IS NOT NULL AND due_date < $3
	`, DocTypeInvoice, StatusSent, asOf)
	if err != nil {
		return nil, fmt.Errorf("documents: list overdue: %w", err)
	}
	defer rows.Close()

	var out []OverdueCandidate
	for rows.Next() {
		var c OverdueCandidate
		if err := rows.Scan(&c.TenantID, &c.ID); err != nil {
			return nil, fmt.Errorf("documents: scan overdue: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (*SalesDocument, error) {
	var doc SalesDocument
	err := row.Scan(&doc.ID, &doc.TenantID, &doc.Type, &doc.Number, &doc.Status,
		&doc.CustomerID, &doc.DocumentDate, &doc.DueDate, &doc.Currency, &doc.Notes,
		&doc.SubTotal, &doc.VATAmount, &doc.TotalAmount, &doc.PaidAmount,
		&doc.SourceDocumentID, &doc.SourceDocumentType, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
