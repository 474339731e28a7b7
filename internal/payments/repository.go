package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/ledgerkit/internal/documents"
	"github.com/ledgerkit/ledgerkit/internal/platform/db"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Repository is the payment ledger port. It owns payment records and,
// because the ledger updates a document's paidAmount transactionally
// with record creation, it also carries the document writes it needs.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	LockDocument(ctx context.Context, id uuid.UUID) error
	GetDocument(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*documents.SalesDocument, error)
	UpdateDocumentPayment(ctx context.Context, tenant shared.TenantContext, id uuid.UUID, paid decimal.Decimal) error
	UpdateDocumentStatus(ctx context.Context, tenant shared.TenantContext, id uuid.UUID, status documents.Status) error
	CreateDocument(ctx context.Context, tenant shared.TenantContext, doc *documents.SalesDocument) error
	GenerateNumber(ctx context.Context, tenant shared.TenantContext, docType documents.DocType, date time.Time) (string, error)
	CreateRecord(ctx context.Context, tenant shared.TenantContext, rec *PaymentRecord) error
	GetRecord(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*PaymentRecord, error)
	ListByDocument(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID) ([]PaymentRecord, error)
	MarkReceipted(ctx context.Context, tenant shared.TenantContext, paymentIDs []uuid.UUID, receiptID uuid.UUID) error
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

// NewRepository builds the pgx-backed payment ledger repository.
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

// LockDocument serializes ledger commands with document commands on the
// same per-document advisory lock the document store uses.
func (r *repository) LockDocument(ctx context.Context, id uuid.UUID) error {
	if !r.inTx {
		return errors.New("payments: lock requires a transaction")
	}
	timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
	if _, err := r.db.Exec(ctx, timeout); err != nil {
		return fmt.Errorf("payments: set lock timeout: %w", err)
	}
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, shared.DocumentLockKey(id)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return &documents.ConcurrencyConflictError{DocumentID: id}
		}
		return fmt.Errorf("payments: acquire lock: %w", err)
	}
	return nil
}

func (r *repository) GetDocument(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*documents.SalesDocument, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, doc_type, doc_number, status, customer_id, document_date, due_date,
		       currency, notes, subtotal, vat_amount, total_amount, paid_amount,
		       source_document_id, source_document_type, created_at, updated_at
		FROM sales_documents WHERE tenant_id = $1 AND id = $2
	`, tenant.TenantID, id)

	var doc documents.SalesDocument
	err := row.Scan(&doc.ID, &doc.TenantID, &doc.Type, &doc.Number, &doc.Status,
		&doc.CustomerID, &doc.DocumentDate, &doc.DueDate, &doc.Currency, &doc.Notes,
		&doc.SubTotal, &doc.VATAmount, &doc.TotalAmount, &doc.PaidAmount,
		&doc.SourceDocumentID, &doc.SourceDocumentType, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("payments: get document: %w", err)
	}
	return &doc, nil
}

func (r *repository) UpdateDocumentPayment(ctx context.Context, tenant shared.TenantContext, id uuid.UUID, paid decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales_documents SET paid_amount = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenant.TenantID, id, paid)
	if err != nil {
		return fmt.Errorf("payments: update paid amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateDocumentStatus(ctx context.Context, tenant shared.TenantContext, id uuid.UUID, status documents.Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales_documents SET status = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenant.TenantID, id, status)
	if err != nil {
		return fmt.Errorf("payments: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CreateDocument(ctx context.Context, tenant shared.TenantContext, doc *documents.SalesDocument) error {
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
		return fmt.Errorf("payments: create document: %w", err)
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, tenant shared.TenantContext, docType documents.DocType, date time.Time) (string, error) {
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
		return "", fmt.Errorf("payments: generate number: %w", err)
	}
	prefix := "RC"
	if docType == documents.DocTypeTaxInvoiceReceipt {
		prefix = "TIR"
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format("0601"), seq), nil
}

const recordColumns = `id, tenant_id, document_id, amount, method, paid_at, reference_number, reversal_of, receipt_id, created_at`

func (r *repository) CreateRecord(ctx context.Context, tenant shared.TenantContext, rec *PaymentRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_records (id, tenant_id, document_id, amount, method, paid_at,
			reference_number, reversal_of, receipt_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, tenant.TenantID, rec.DocumentID, rec.Amount, rec.Method, rec.Date,
		rec.ReferenceNumber, rec.ReversalOf, rec.ReceiptID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("payments: create record: %w", err)
	}
	return nil
}

func (r *repository) GetRecord(ctx context.Context, tenant shared.TenantContext, id uuid.UUID) (*PaymentRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM payment_records WHERE tenant_id = $1 AND id = $2`,
		tenant.TenantID, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("payments: get record: %w", err)
	}
	return rec, nil
}

func (r *repository) ListByDocument(ctx context.Context, tenant shared.TenantContext, docID uuid.UUID) ([]PaymentRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM payment_records WHERE tenant_id = $1 AND document_id = $2 ORDER BY created_at`,
		tenant.TenantID, docID)
	if err != nil {
		return nil, fmt.Errorf("payments: list records: %w", err)
	}
	defer rows.Close()

	var records []PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("payments: scan record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *repository) MarkReceipted(ctx context.Context, tenant shared.TenantContext, paymentIDs []uuid.UUID, receiptID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payment_records SET receipt_id = $3
		WHERE tenant_id = $1 AND id = ANY($2)
	`, tenant.TenantID, paymentIDs, receiptID)
	if err != nil {
		return fmt.Errorf("payments: mark receipted: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*PaymentRecord, error) {
	var rec PaymentRecord
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.DocumentID, &rec.Amount, &rec.Method,
		&rec.Date, &rec.ReferenceNumber, &rec.ReversalOf, &rec.ReceiptID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
